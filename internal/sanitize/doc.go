// Package sanitize finds credentials in JSON configuration and swaps them
// for ${NAME} placeholders before a bundle is shared, then substitutes real
// values back in when a bundle is applied.
package sanitize
