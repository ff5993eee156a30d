package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tluyben/lawyeredup/legal"
	"github.com/tluyben/lawyeredup/library"
	"github.com/tluyben/lawyeredup/log"
	"github.com/tluyben/lawyeredup/server"
)

const shutdownTimeout = 10 * time.Second

var (
	ErrMissingFlow     = errors.New("please provide a flow name")
	ErrMissingDir      = errors.New("please provide a directory to index")
	ErrMissingQuery    = errors.New("please provide a search query")
	ErrMissingQuestion = errors.New("please provide a question")
	ErrNoMatch         = errors.New("no contract in the library matches the question")
)

func (l *lawyeredup) listFlows(c *cli.Context) error {
	reg, err := l.registry()
	if err != nil {
		return err
	}
	w := c.App.Writer
	for _, spec := range reg.Specs() {
		fmt.Fprintf(w, "%-32s %s\n", spec.Name, spec.Description)
	}
	return nil
}

func (l *lawyeredup) render(c *cli.Context) error {
	if c.NArg() < 1 {
		return ErrMissingFlow
	}
	reg, err := l.registry()
	if err != nil {
		return err
	}
	spec, err := reg.Get(c.Args().Get(0))
	if err != nil {
		return err
	}
	input, err := readInput(c.Args().Get(1), os.Stdin)
	if err != nil {
		return err
	}
	in, err := spec.ValidateInput(input)
	if err != nil {
		return err
	}
	prompt, err := spec.Render(in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, prompt)
	return err
}

func (l *lawyeredup) run(c *cli.Context) error {
	if c.NArg() < 1 {
		return ErrMissingFlow
	}
	input, err := readInput(c.Args().Get(1), os.Stdin)
	if err != nil {
		return err
	}
	exec, err := l.executor(c.Context)
	if err != nil {
		return err
	}
	res, err := exec.Invoke(c.Context, c.Args().Get(0), input)
	if err != nil {
		return err
	}
	if out := c.String("out"); out != "" {
		if err := library.WriteResult(out, res.Output); err != nil {
			return err
		}
		l.log.Info("Output written", slog.String("path", out))
		return nil
	}
	return writeJSON(c.App.Writer, res.Output)
}

func (l *lawyeredup) index(c *cli.Context) error {
	if c.NArg() < 1 {
		return ErrMissingDir
	}
	lib, err := library.Open(l.cfg.IndexPath, l.log)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	n, err := lib.IndexDir(c.Args().Get(0))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "indexed %d documents\n", n)
	return err
}

func (l *lawyeredup) search(c *cli.Context) error {
	if c.NArg() < 1 {
		return ErrMissingQuery
	}
	lib, err := library.Open(l.cfg.IndexPath, l.log)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	hits, err := lib.Search(c.Args().Get(0), c.Int("limit"))
	if err != nil {
		return err
	}
	for _, h := range hits {
		fmt.Fprintf(c.App.Writer, "%.3f  %s\n", h.Score, h.ID)
		if h.Snippet != "" {
			fmt.Fprintf(c.App.Writer, "       %s\n", h.Snippet)
		}
	}
	return nil
}

// ask answers a question from the contract that best matches it
func (l *lawyeredup) ask(c *cli.Context) error {
	if c.NArg() < 1 {
		return ErrMissingQuestion
	}
	question := c.Args().Get(0)

	lib, err := library.Open(l.cfg.IndexPath, l.log)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	hits, err := lib.Search(question, 1)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		return ErrNoMatch
	}
	doc, err := lib.Get(hits[0].ID)
	if err != nil {
		return err
	}

	exec, err := l.executor(c.Context)
	if err != nil {
		return err
	}
	l.log.Info("Answering from contract", slog.String("document", doc.ID))
	res, err := legal.NewClient(exec).AnswerQuestion(c.Context,
		legal.AnswerQuestionInput{
			UserQuestion: question,
			ContractText: doc.Content,
		},
	)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, map[string]any{
		"document": doc.ID,
		"answer":   res,
	})
}

func (l *lawyeredup) serve(c *cli.Context) error {
	exec, err := l.executor(c.Context)
	if err != nil {
		return err
	}
	lib, err := library.Open(l.cfg.IndexPath, l.log)
	if err != nil {
		return err
	}
	defer func() { _ = lib.Close() }()

	srv := &http.Server{
		Addr:              l.cfg.Addr(),
		Handler:           server.NewServer(exec, lib, l.log).SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		l.log.Info("HTTP server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errs:
		return err
	case <-quit:
	}

	l.log.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		l.log.Error("Shutdown failed", log.Error(err))
		return err
	}
	return nil
}

// readInput decodes a JSON input object from a file, or from stdin when
// path is empty or "-"
func readInput(path string, stdin io.Reader) (any, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("error reading input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	var input any
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, fmt.Errorf("error parsing input: %w", err)
	}
	return input, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
