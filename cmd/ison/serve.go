package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
	"github.com/ison-lang/ison/pkg/ison"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// serveCmd exposes Process and ExecFunc as a line-delimited JSON-RPC
// service over stdio, and optionally over TCP as well, the "ison serve"
// front end sketched alongside the CLI collaborator.
func serveCmd() *cobra.Command {
	var debug bool
	var baseDir string
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a JSON-RPC front end exposing Process and ExecFunc over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), debug, baseDir, listenAddr)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	cmd.Flags().StringVar(&baseDir, "base-dir", ".", "Base directory for __includes__ resolution")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "Also accept JSON-RPC connections on this TCP address (e.g. :9000)")
	return cmd
}

type processRequest struct {
	Document  json.RawMessage `json:"document"`
	StripVars bool            `json:"stripVars"`
}

type execFuncRequest struct {
	Name string            `json:"name"`
	Args []json.RawMessage `json:"args"`
}

func runServe(ctx context.Context, debug bool, baseDir, listenAddr string) error {
	logger := setupLogging(os.Stderr, debug)

	// Each connection gets its own Processor, and its requests run one at
	// a time, so no evaluation state is shared between concurrent calls.
	newAssigner := func() handler.Map {
		return rpcAssigner(ison.NewProcessor(ison.FileLoader{BaseDir: baseDir}), logger)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		srv := jrpc2.NewServer(newAssigner(), &jrpc2.ServerOptions{
			Logger:      func(text string) { logger.Debug(text) },
			Concurrency: 1,
		})
		srv.Start(channel.Line(os.Stdin, os.Stdout))
		return srv.Wait()
	})

	if listenAddr != "" {
		lst, err := net.Listen("tcp", listenAddr)
		if err != nil {
			return err
		}
		eg.Go(func() error {
			<-egCtx.Done()
			return lst.Close()
		})
		eg.Go(func() error {
			logger.InfoContext(ctx, "listening for TCP JSON-RPC connections", "addr", lst.Addr().String())
			for {
				conn, err := lst.Accept()
				if err != nil {
					return err
				}
				eg.Go(func() error {
					defer conn.Close()
					srv := jrpc2.NewServer(newAssigner(), &jrpc2.ServerOptions{
						Logger:      func(text string) { logger.Debug(text) },
						Concurrency: 1,
					})
					srv.Start(channel.Line(conn, conn))
					return srv.Wait()
				})
			}
		})
	}

	err := eg.Wait()
	logger.InfoContext(ctx, "serve closed", "error", err)
	return err
}

func rpcAssigner(proc *ison.Processor, logger *slog.Logger) handler.Map {
	return handler.Map{
		"Process": handler.New(func(ctx context.Context, req processRequest) (json.RawMessage, error) {
			doc, err := ison.DecodeJSON5(string(req.Document))
			if err != nil {
				return nil, err
			}
			result, err := proc.Process(doc, ison.ProcessOptions{StripVars: req.StripVars})
			if err != nil {
				return nil, err
			}
			return json.RawMessage(ison.ToString(result, 0)), nil
		}),
		"ExecFunc": handler.New(func(ctx context.Context, req execFuncRequest) (json.RawMessage, error) {
			args := make([]ison.Value, len(req.Args))
			for i, raw := range req.Args {
				v, err := ison.DecodeJSON5(string(raw))
				if err != nil {
					return nil, err
				}
				args[i] = v
			}
			result, err := proc.ExecFunc(req.Name, args...)
			if err != nil {
				return nil, err
			}
			return json.RawMessage(ison.ToString(result, 0)), nil
		}),
	}
}
