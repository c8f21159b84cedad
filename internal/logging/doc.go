// Package logging sets up zerolog for the CLI: a console writer on stderr
// plus a log file under the XDG state directory, with per-component
// loggers. User-facing progress is printed by the commands themselves;
// these logs carry diagnostics only.
package logging
