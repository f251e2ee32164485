package main

import (
	"encoding/json"
	"fmt"
	"os"
)

const usage = `usage: admin <command> [flags]

commands:
  state   print the /data response
  grid    render the board (-next previews one generation)
  set     load a .cells pattern and POST it to /setcells
  step    POST /step
  txs     list journaled submissions (sqlite index, or -jsonl)`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "state":
		stateCmd(os.Args[2:])
	case "grid":
		gridCmd(os.Args[2:])
	case "set":
		setCmd(os.Args[2:])
	case "step":
		stepCmd(os.Args[2:])
	case "txs":
		txsCmd(os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
