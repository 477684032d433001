// Package cli implements the tgform command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tgform/config"
	"tgform/internal/core"
	"tgform/internal/formatter"
	"tgform/internal/payloadio"
	"tgform/internal/version"
)

// Dependencies are the collaborators the commands run against.
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger
	// Input is read when the payload path is "-".
	Input  io.Reader
	Output io.Writer
	// NewRequestID defaults to uuid.NewString.
	NewRequestID func() string
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Config == nil {
		d.Config = config.Defaults()
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Output == nil {
		d.Output = io.Discard
	}
	if d.NewRequestID == nil {
		d.NewRequestID = uuid.NewString
	}
	return d
}

// NewRootCommand builds the tgform command tree.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	dependencies = dependencies.withDefaults()

	root := &cobra.Command{
		Use:           "tgform",
		Short:         "Format Bot API request payloads for multipart transport",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(buildFormatCommand(dependencies))
	root.AddCommand(buildRulesCommand(dependencies))
	root.AddCommand(buildVersionCommand(dependencies))
	return root
}

func buildFormatCommand(dependencies Dependencies) *cobra.Command {
	var (
		methodInput  string
		payloadInput string
		formatInput  string
		baseDirInput string
		indentInput  int
	)

	command := &cobra.Command{
		Use:   "format",
		Short: "Format a payload document for an API method and print the transport fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := dependencies.Config

			data, err := readPayload(payloadInput, dependencies.Input)
			if err != nil {
				return err
			}

			format, err := payloadio.ParseFormat(firstNonEmpty(formatInput, cfg.Input.Format))
			if err != nil {
				return core.NewInvalidPayloadError("invalid --format", err)
			}
			if format == "" {
				format = payloadio.DetectFormat(payloadInput)
			}

			baseDir := firstNonEmpty(baseDirInput, cfg.Input.BaseDir)
			if baseDir == "" && payloadInput != "-" {
				baseDir = filepath.Dir(payloadInput)
			}

			payload, err := payloadio.Decoder{BaseDir: baseDir}.Decode(data, format)
			if err != nil {
				return err
			}

			ctx := core.WithRequestID(cmd.Context(), dependencies.NewRequestID())
			formatted, err := formatter.Format(payload, methodInput)
			if err != nil {
				dependencies.Logger.ErrorContext(ctx, "failed to format payload", "method", methodInput, "error", err)
				return err
			}
			dependencies.Logger.DebugContext(ctx, "payload formatted",
				"method", methodInput,
				"special_case", formatter.HasRule(methodInput),
				"fields", formatted.Len(),
				"attachments", len(formatted.Files()),
			)

			indent := cfg.Output.Indent
			if indentInput >= 0 {
				indent = indentInput
			}
			return payloadio.Render(dependencies.Output, formatted, indent)
		},
	}

	command.Flags().StringVar(&methodInput, "method", "", "Bot API method name, e.g. sendMediaGroup")
	command.Flags().StringVar(&payloadInput, "payload", "-", "Payload document path, or - for stdin")
	command.Flags().StringVar(&formatInput, "format", "", "Payload syntax: json or yaml (default: from extension)")
	command.Flags().StringVar(&baseDirInput, "base-dir", "", "Directory for relative $file paths (default: payload directory)")
	command.Flags().IntVar(&indentInput, "indent", -1, "Output indentation in spaces (default: from config)")

	markRequired(command, "method")

	return command
}

func buildRulesCommand(dependencies Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the methods whose nested files are extracted",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(dependencies.Output, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tFIELD\tRULE")
			for _, r := range formatter.Rules() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Method, r.Field, r.Kind)
			}
			return w.Flush()
		},
	}
}

func buildVersionCommand(dependencies Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(dependencies.Output, version.Info())
			return err
		},
	}
}

func readPayload(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			return nil, core.NewInvalidPayloadError("no payload input available", nil)
		}
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, core.NewInvalidPayloadError("failed to read payload from stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewInvalidPayloadError(fmt.Sprintf("failed to read payload %s", path), err)
	}
	return data, nil
}

// ExitCode maps a command error to a process exit status: 2 for bad input
// or configuration, 1 for anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var fe *core.FormatError
	if errors.As(err, &fe) && (fe.Type == core.ErrorTypeInvalidPayload || fe.Type == core.ErrorTypeConfig) {
		return 2
	}
	return 1
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func markRequired(cmd *cobra.Command, name string) {
	_ = cmd.MarkFlagRequired(name)
}
