// Package config manages user-level settings stored at
// ~/.confshare/config.yaml and resolves the directories every command
// works against (assistant configuration tree, bundle library, download
// and cache locations). Values may be overridden with CONFSHARE_*
// environment variables.
package config
