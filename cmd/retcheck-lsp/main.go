// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"log"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"retcheck/internal/analysis"
	"retcheck/internal/config"
	"retcheck/internal/lsp"
)

const lsName = "retcheck"

var handler protocol.Handler

func main() {
	configPath := flag.String("config", "", "configuration file (default: ./"+config.FileName+" if present)")
	verbosity := flag.Int("v", 1, "log verbosity")
	debug := flag.Bool("debug", false, "log every protocol message")
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	conf, err := config.Load(*configPath)
	if err != nil {
		log.Println("Error loading configuration:", err)
		os.Exit(1)
	}

	listingHandler := lsp.NewHandler(
		analysis.BatchOptions{Workers: conf.Workers, Policy: conf.AnalysisPolicy()},
		conf.Threshold(),
	)

	handler = protocol.Handler{
		Initialize:                     listingHandler.Initialize,
		Initialized:                    listingHandler.Initialized,
		Shutdown:                       listingHandler.Shutdown,
		SetTrace:                       listingHandler.SetTrace,
		TextDocumentDidOpen:            listingHandler.TextDocumentDidOpen,
		TextDocumentDidClose:           listingHandler.TextDocumentDidClose,
		TextDocumentDidChange:          listingHandler.TextDocumentDidChange,
		TextDocumentSemanticTokensFull: listingHandler.TextDocumentSemanticTokensFull,
	}

	s := server.NewServer(&handler, lsName, *debug)

	log.Println("Starting retcheck LSP server...")

	// editors talk to the server over stdio
	if err := s.RunStdio(); err != nil {
		log.Println("Error starting retcheck LSP server:", err)
		os.Exit(1)
	}
}
