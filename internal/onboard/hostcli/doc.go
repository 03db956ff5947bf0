// Package hostcli binds the chat and orchestrator host capabilities to a
// plain terminal session: the system clipboard, URL-based commands, a
// pseudo-terminal shell, coloured notifications and interactive pickers.
package hostcli
