package main

import (
	"log"
	"os"
)

const usage = `usage: worker <command> [flags]

commands:
  analyze   -name N -description D [-provider P]   derive requirements
  generate  -requirements FILE [-provider P]        generate code from a JSON list of requirements
  export    -id PROJECT_ID                          export a completed project's code
  recover   [-older-than D]                         relaunch steps of stalled projects and wait`

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = RunAnalyze(os.Args[2:])
	case "generate":
		err = RunGenerate(os.Args[2:])
	case "export":
		err = RunExport(os.Args[2:])
	case "recover":
		err = RunRecover(os.Args[2:])
	default:
		log.Fatalf("unknown command: %s\n%s", os.Args[1], usage)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}
