// Package logging provides file-based structured (JSON) logging with
// rotation for coderag. Setup always writes to a log file; the commands use
// ~/.coderag/logs/server.log unless logging.path is configured. A copy of
// each line also goes to stderr only when Config.WriteToStderr is set.
package logging
