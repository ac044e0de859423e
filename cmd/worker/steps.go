package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/GoSim-25-26J-441/codegen-backend/config"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/llm"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/logger"
	"github.com/GoSim-25-26J-441/codegen-backend/internal/workflow"
)

// RunAnalyze runs a single Analyze step and prints the requirements as JSON.
func RunAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	name := fs.String("name", "", "project name")
	description := fs.String("description", "", "project description")
	provider := fs.String("provider", "", "model provider (defaults to LLM_PROVIDER)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*description) == "" {
		return errors.New("-name and -description are required")
	}

	cfg, client, err := modelClient(*provider)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(logger.WithRequestID(context.Background(), "worker"), cfg.Workflow.StepTimeout)
	defer cancel()

	res := workflow.New(workflow.WithMaxPromptTokens(cfg.Workflow.MaxPromptTokens)).Analyze(ctx, client, *name, *description)
	if !res.OK() {
		return errors.New(res.Reason())
	}
	return printJSON(res.Value)
}

// RunGenerate runs a single Generate step over requirements read from a JSON
// file ("-" for stdin) and prints the files as JSON.
func RunGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	path := fs.String("requirements", "-", "JSON array of requirement strings")
	provider := fs.String("provider", "", "model provider (defaults to LLM_PROVIDER)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var raw []byte
	var err error
	if *path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(*path)
	}
	if err != nil {
		return fmt.Errorf("read requirements: %w", err)
	}
	var requirements []string
	if err := json.Unmarshal(raw, &requirements); err != nil {
		return fmt.Errorf("decode requirements: %w", err)
	}
	if len(requirements) == 0 {
		return errors.New("requirements list is empty")
	}

	cfg, client, err := modelClient(*provider)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(logger.WithRequestID(context.Background(), "worker"), cfg.Workflow.StepTimeout)
	defer cancel()

	res := workflow.New(workflow.WithMaxPromptTokens(cfg.Workflow.MaxPromptTokens)).Generate(ctx, client, requirements)
	if !res.OK() {
		return errors.New(res.Reason())
	}
	return printJSON(res.Value)
}

func modelClient(provider string) (*config.Config, llm.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(cfg.App.LogLevel)
	client, err := llm.NewRegistry(cfg.LLM).Client(provider)
	if err != nil {
		return nil, nil, err
	}
	return cfg, client, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
