// Package cli provides the interactive attach command-line client.
//
// It wires configuration, the cipher context, the attachment registry, the
// stage handlers and the optional upload ledger, then runs a REPL:
//
//	add <path>...                 add files (file:// URIs accepted)
//	meta [name=value]...          set or show flow metadata
//	list                          show attachments and their state
//	run                           process every attachment through the enabled stages
//	decrypt <src> <dst> [iv_hex]  restore an encrypted file
//	history                       show recorded uploads
//	forget <path>...              drop ledger rows
//	exit | quit                   leave the program
//
// The REPL is started via App.Run, which blocks until the user exits.
package cli
