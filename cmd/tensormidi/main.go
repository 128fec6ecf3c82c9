// Package main is the entry point for the tensormidi CLI
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wrongbad/tensormidi/pkg/api"
	"github.com/wrongbad/tensormidi/pkg/config"
	"github.com/wrongbad/tensormidi/pkg/converter"
	"github.com/wrongbad/tensormidi/pkg/logging"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"github.com/wrongbad/tensormidi/pkg/tui"
	"go.uber.org/zap"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	logLevel   string

	outputPath       string
	formatName       string
	unitName         string
	merge            bool
	notesOnly        bool
	durations        bool
	removeNoteOff    bool
	dropUnterminated bool
	defaultProgram   uint8
	workers          int

	jsonOutput bool
	serverPort int

	cfg    *config.Config
	logger = zap.NewNop()
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tensormidi",
	Short: "Decode Standard MIDI Files into fixed-width event tables",
	Long: `tensormidi decodes Standard MIDI Files into packed, fixed-width event
tables ready for numerical work: one row per event with delta time,
program, track, type, channel, key and value columns, plus an optional
note duration.

Examples:
  tensormidi decode song.mid -o song.npy
  tensormidi decode *.mid -o out/ --format csv --unit seconds --durations
  tensormidi info song.mid
  tensormidi verify song.mid
  tensormidi layout --unit ticks --durations
  tensormidi tui
  tensormidi serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var decodeCmd = &cobra.Command{
	Use:   "decode <input.mid>...",
	Short: "Decode MIDI files to npy, bin, csv or json",
	Long: `Decodes each input and writes its event tables. With one input, -o names
the output file. With several, -o names an output directory. Without -o,
outputs are written next to the inputs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

var infoCmd = &cobra.Command{
	Use:   "info <input.mid>",
	Short: "Summarize tracks, notes and tempo map",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <input.mid>...",
	Short: "Cross-check the decoder against gomidi",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerify,
}

var layoutCmd = &cobra.Command{
	Use:   "layout",
	Short: "Print the event and tempo table layouts",
	Args:  cobra.NoArgs,
	RunE:  runLayout,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/tensormidi/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Decode options, shared by decode, tui and serve
	for _, c := range []*cobra.Command{decodeCmd, tuiCmd, serveCmd} {
		f := c.Flags()
		f.StringVarP(&unitName, "unit", "u", "microseconds", "Time unit: ticks, microseconds or seconds")
		f.BoolVar(&merge, "merge", true, "Merge all tracks into one stream")
		f.BoolVar(&notesOnly, "notes-only", true, "Keep only Note-On and Note-Off events")
		f.BoolVar(&durations, "durations", false, "Compute note durations")
		f.BoolVar(&removeNoteOff, "remove-note-off", false, "Drop Note-Off records (default: on when --durations)")
		f.BoolVar(&dropUnterminated, "drop-unterminated", false, "Drop notes that are never released")
		f.Uint8Var(&defaultProgram, "program", 0, "Program reported before any Program-Change")
	}

	// decode command
	decodeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file, or directory for several inputs")
	decodeCmd.Flags().StringVarP(&formatName, "format", "f", "", "Output format: npy, bin, csv, json (default from -o or config)")
	decodeCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Parallel decodes (default GOMAXPROCS)")

	// info command
	infoCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	// verify command
	verifyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	// layout command
	layoutCmd.Flags().StringVarP(&unitName, "unit", "u", "microseconds", "Time unit: ticks, microseconds or seconds")
	layoutCmd.Flags().BoolVar(&durations, "durations", false, "Include the duration column")
	layoutCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}
	level := cfg.LogLevel
	if cmd.Flags().Changed("log-level") {
		level = logLevel
	}
	if cmd == tuiCmd && !cmd.Flags().Changed("log-level") {
		// the alt screen owns the terminal
		return nil
	}
	logger, err = logging.New(level)
	return err
}

// decodeOptions starts from the config file and applies only the flags the
// user actually set.
func decodeOptions(cmd *cobra.Command) (tensormidi.Options, error) {
	opts, err := cfg.Options()
	if err != nil {
		return opts, err
	}
	flags := cmd.Flags()

	if flags.Changed("unit") {
		if opts.TimeUnit, err = tensormidi.ParseTimeUnit(unitName); err != nil {
			return opts, err
		}
	}
	if flags.Changed("merge") {
		opts.MergeTracks = merge
	}
	if flags.Changed("notes-only") {
		opts.NotesOnly = notesOnly
	}
	if flags.Changed("durations") {
		opts.Durations = durations
	}
	if flags.Changed("remove-note-off") {
		tensormidi.WithRemoveNoteOff(removeNoteOff)(&opts)
	}
	if flags.Changed("drop-unterminated") {
		opts.Unterminated = tensormidi.UnterminatedEmit
		if dropUnterminated {
			opts.Unterminated = tensormidi.UnterminatedDrop
		}
	}
	if flags.Changed("program") {
		if defaultProgram > 127 {
			return opts, fmt.Errorf("program %d out of range", defaultProgram)
		}
		opts.DefaultProgram = defaultProgram
	}
	return opts, nil
}

// exportFormat picks the output format: --format, then the -o extension,
// then the config file.
func exportFormat(cmd *cobra.Command) (converter.Format, error) {
	if cmd.Flags().Changed("format") {
		return converter.ParseFormat(formatName)
	}
	if f := converter.DetectFormat(outputPath); f != converter.FormatUnknown && f != converter.FormatMIDI {
		return f, nil
	}
	return cfg.ExportFormat(), nil
}

// outputFor returns where the tables for input are written.
func outputFor(input, output string, multi bool, f converter.Format) string {
	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + f.Extension()
	switch {
	case output == "":
		return filepath.Join(filepath.Dir(input), name)
	case multi:
		return filepath.Join(output, name)
	default:
		return output
	}
}

func runDecode(cmd *cobra.Command, args []string) error {
	opts, err := decodeOptions(cmd)
	if err != nil {
		return err
	}
	format, err := exportFormat(cmd)
	if err != nil {
		return err
	}
	multi := len(args) > 1
	if multi && outputPath != "" {
		if err := os.MkdirAll(outputPath, 0755); err != nil {
			return err
		}
	}
	n := workers
	if !cmd.Flags().Changed("workers") {
		n = cfg.Workers
	}

	conv := converter.New(opts, logger)
	results, err := conv.DecodeFiles(cmd.Context(), args, n)
	if err != nil {
		return err
	}

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, r.Err)
			continue
		}
		written, err := converter.WriteResult(r.Result, outputFor(r.Path, outputPath, multi, format), format)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Path, err)
			continue
		}
		fmt.Printf("Decoded %s -> %s (%d events)\n", r.Path, strings.Join(written, ", "), r.Result.Events())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	info, err := converter.Inspect(data)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(info)
	}

	fmt.Printf("%s: format %d, %d ticks/beat, %.3fs\n", args[0], info.Format, info.TicksPerBeat, info.Seconds)
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TRACK\tEVENTS\tNOTES\tCHANNELS\tSECONDS")
	for _, t := range info.Tracks {
		fmt.Fprintf(w, "%d\t%d\t%d\t%v\t%.3f\n", t.Index, t.Events, t.Notes, t.Channels, t.Seconds)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println("Tempo map:")
	for _, t := range info.Tempos {
		fmt.Printf("  tick %-8d %7d us/beat  %.2f bpm\n", t.Tick, t.UsecPerBeat, t.BPM())
	}
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	var failed []string
	reports := make(map[string]*converter.CheckReport, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		report, err := converter.CrossCheck(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		reports[path] = report
		if !report.OK() {
			failed = append(failed, path)
		}
		if jsonOutput {
			continue
		}
		if report.OK() {
			fmt.Printf("✓ %s: %d tracks, %d channel events, %d tempo changes\n", path, report.Tracks, report.Events, report.Tempos)
			continue
		}
		fmt.Printf("✗ %s\n", path)
		for _, m := range report.Mismatches {
			fmt.Printf("    %s\n", m)
		}
	}
	if jsonOutput {
		if err := printJSON(reports); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return errors.New("decoders disagree on: " + strings.Join(failed, ", "))
	}
	return nil
}

func runLayout(cmd *cobra.Command, args []string) error {
	unit, err := tensormidi.ParseTimeUnit(unitName)
	if err != nil {
		return err
	}
	events := tensormidi.EventLayout(unit, durations)
	tempos := tensormidi.TempoLayout(unit)
	if jsonOutput {
		return printJSON(map[string]tensormidi.Layout{"events": events, "tempos": tempos})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, l := range []struct {
		name   string
		layout tensormidi.Layout
	}{{"events", events}, {"tempos", tempos}} {
		fmt.Fprintf(w, "%s (%d bytes/row)\n", l.name, l.layout.RowSize)
		fmt.Fprintln(w, "  COLUMN\tTYPE\tOFFSET")
		for _, c := range l.layout.Columns {
			fmt.Fprintf(w, "  %s\t%s\t%d\n", c.Name, c.Kind, c.Offset)
		}
	}
	return w.Flush()
}

func runTUI(cmd *cobra.Command, args []string) error {
	opts, err := decodeOptions(cmd)
	if err != nil {
		return err
	}
	return tui.Run(opts, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	opts, err := decodeOptions(cmd)
	if err != nil {
		return err
	}
	port := serverPort
	if !cmd.Flags().Changed("port") {
		port = cfg.Server.Port
	}
	fmt.Printf("Starting API server on port %d...\n", port)
	fmt.Printf("Swagger docs available at http://localhost:%d/swagger/index.html\n", port)
	return api.StartServer(port, api.Config{
		Logger:    logger,
		Defaults:  opts,
		MaxUpload: int64(cfg.Server.MaxUploadMB) << 20,
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
