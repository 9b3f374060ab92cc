package args

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markis/docqa/internal/config"
)

// Action names the operation selected on the command line.
type Action string

const (
	ActionNone      Action = ""
	ActionAsk       Action = "ask"
	ActionUpload    Action = "upload"
	ActionScrape    Action = "scrape"
	ActionStatus    Action = "status"
	ActionSummarize Action = "summarize"
	ActionReset     Action = "reset"
)

// Arguments represents the command-line arguments structure.
type Arguments struct {
	Action Action
	// Question is the text to ask, for ActionAsk.
	Question string
	// Target is the file path for ActionUpload or the URL for ActionScrape.
	Target       string
	MaxLength    int
	Server       string
	UsePlainText bool
	Debug        bool
	// Yes skips the reset confirmation.
	Yes bool
}

// ParseArgs parses argv, returning an Arguments struct. Piped input in stdin,
// when non-nil, becomes (part of) the question. Only asking reads stdin; every
// other command leaves it untouched. An empty Action with a nil error means
// cobra only printed help.
func ParseArgs(cfg config.Config, argv []string, stdin io.Reader) (Arguments, error) {
	args := Arguments{MaxLength: cfg.Summary.MaxLength}

	ask := func(cmdArgs []string, piped string) error {
		parts := make([]string, 0, 2)
		if len(cmdArgs) > 0 {
			parts = append(parts, strings.Join(cmdArgs, " "))
		}
		if piped != "" {
			parts = append(parts, piped)
		}
		if len(parts) == 0 {
			return errors.New("no question provided")
		}
		args.Action = ActionAsk
		args.Question = strings.Join(parts, "\n\n")
		return nil
	}

	rootCmd := &cobra.Command{
		Use:   "docqa [question]",
		Short: "Ask questions about your indexed documents",
		Long:  `docqa is a terminal client for the document question-answering service.

Upload PDFs or import web pages, then ask questions: answers stream in as they
are generated and finish with the sources they were drawn from.`,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			piped, err := readPiped(stdin)
			if err != nil {
				return err
			}
			if len(cmdArgs) == 0 && piped == "" {
				return cmd.Help()
			}
			return ask(cmdArgs, piped)
		},
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true, // We'll handle error reporting
		SilenceUsage:  true, // We'll handle usage display
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&args.Server, "server", "", "Service base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&args.UsePlainText, "plain", shouldUsePlainText(cfg), "Disable markdown rendering")
	rootCmd.PersistentFlags().BoolVar(&args.Debug, "debug", false, "Log diagnostics to stderr")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "ask [question]",
			Short: "Ask a question and stream the answer",
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				piped, err := readPiped(stdin)
				if err != nil {
					return err
				}
				return ask(cmdArgs, piped)
			},
		},
		&cobra.Command{
			Use:   "upload <file.pdf>",
			Short: "Upload a PDF and index it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				args.Action = ActionUpload
				args.Target = cmdArgs[0]
				return nil
			},
		},
		&cobra.Command{
			Use:   "scrape <url>",
			Short: "Fetch a web page and index its text",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				args.Action = ActionScrape
				args.Target = cmdArgs[0]
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show service status and indexed documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, cmdArgs []string) error {
				args.Action = ActionStatus
				return nil
			},
		},
	)

	summarizeCmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize every indexed document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			if args.MaxLength <= 0 {
				return fmt.Errorf("--max-length must be positive, got %d", args.MaxLength)
			}
			args.Action = ActionSummarize
			return nil
		},
	}
	summarizeCmd.Flags().IntVar(&args.MaxLength, "max-length", cfg.Summary.MaxLength, "Approximate summary length in words")
	rootCmd.AddCommand(summarizeCmd)

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every indexed document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			args.Action = ActionReset
			return nil
		},
	}
	resetCmd.Flags().BoolVarP(&args.Yes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)

	// cobra falls back to os.Args when given nil
	if argv == nil {
		argv = []string{}
	}
	rootCmd.SetArgs(argv)

	// Execute the command
	if err := rootCmd.Execute(); err != nil {
		return Arguments{}, err
	}

	return args, nil
}

// PipedStdin returns os.Stdin when input is piped in, nil otherwise.
func PipedStdin() io.Reader {
	if stat, err := os.Stdin.Stat(); err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return os.Stdin
	}
	return nil
}

func readPiped(stdin io.Reader) (string, error) {
	if stdin == nil {
		return "", nil
	}

	scanner := bufio.NewScanner(stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // 1MB max buffer
	var buf strings.Builder
	for scanner.Scan() {
		buf.WriteString(scanner.Text())
		buf.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Confirm asks a yes/no question on out and reads the answer from in.
// Anything but y or yes is a no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// shouldUsePlainText determines if plain text output should be used based on environment and terminal settings.
func shouldUsePlainText(cfg config.Config) bool {
	// Check if the rendering format is set to plain
	if cfg.Render.Format == "plain" {
		return true
	}

	// Check if output is being redirected
	if fileInfo, _ := os.Stdout.Stat(); fileInfo != nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			return true
		}
	}

	// Check for NO_COLOR environment variable
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}

	// Check for TERM=dumb
	if term := os.Getenv("TERM"); term == "dumb" {
		return true
	}

	return false
}
