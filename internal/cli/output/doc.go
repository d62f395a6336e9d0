// Package output renders server replies for respkv-cli.
//
// The plain format follows redis-cli: quoted bulks, "(integer) n",
// "(nil)", "(error) ..." and numbered array lines. The raw format prints
// payloads only, one per line, for scripting. The json format emits one
// JSON document per reply.
package output
