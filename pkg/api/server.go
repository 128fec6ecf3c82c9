// Package api provides the REST API server for tensormidi
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/wrongbad/tensormidi/pkg/converter"
	"github.com/wrongbad/tensormidi/pkg/smf"
	"github.com/wrongbad/tensormidi/pkg/tensormidi"
	"go.uber.org/zap"
)

// @title tensormidi API
// @version 1.0
// @description Decode Standard MIDI Files into fixed-width event tables
// @host localhost:8080
// @BasePath /api/v1

// DefaultMaxUpload caps the size of an uploaded MIDI file.
const DefaultMaxUpload = 32 << 20

type server struct {
	logger    *zap.Logger
	defaults  tensormidi.Options
	maxUpload int64
}

// Config configures the router
type Config struct {
	Logger *zap.Logger
	// Defaults are the decode options used when a request leaves a
	// parameter out.
	Defaults  tensormidi.Options
	MaxUpload int64
}

// NewRouter builds the gin engine serving the API
func NewRouter(cfg Config) *gin.Engine {
	s := &server{logger: cfg.Logger, defaults: cfg.Defaults, maxUpload: cfg.MaxUpload}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}

	r := gin.New()
	r.Use(requestLogger(s.logger), gin.Recovery())

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.GET("/layout", getLayout)
		v1.POST("/decode", s.handleDecode)
		v1.POST("/inspect", s.handleInspect)
		v1.POST("/verify", s.handleVerify)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int, cfg Config) error {
	r := NewRouter(cfg)
	if cfg.Logger != nil {
		cfg.Logger.Info("api server listening", zap.Int("port", port))
	}
	return r.Run(fmt.Sprintf(":%d", port))
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("request", fields...)
			return
		}
		logger.Info("request", fields...)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "tensormidi",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns the export formats and time units
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	formats := make([]string, 0, 4)
	for _, f := range converter.GetSupportedFormats() {
		formats = append(formats, string(f))
	}
	c.JSON(http.StatusOK, gin.H{
		"formats": formats,
		"units": []string{
			tensormidi.Ticks.String(),
			tensormidi.Microseconds.String(),
			tensormidi.Seconds.String(),
		},
	})
}

// getLayout godoc
// @Summary Describe table layouts
// @Description Returns the event and tempo table layouts for a time unit
// @Tags info
// @Produce json
// @Param unit query string false "ticks, microseconds or seconds (default: microseconds)"
// @Param durations query bool false "Include the duration column"
// @Success 200 {object} map[string]tensormidi.Layout
// @Failure 400 {object} map[string]string
// @Router /api/v1/layout [get]
func getLayout(c *gin.Context) {
	unit, err := tensormidi.ParseTimeUnit(c.DefaultQuery("unit", "microseconds"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	durations, err := queryBool(c, "durations", false)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"events": tensormidi.EventLayout(unit, durations),
		"tempos": tensormidi.TempoLayout(unit),
	})
}

// handleDecode godoc
// @Summary Decode a MIDI file
// @Description Upload a MIDI file and receive its event tables
// @Tags decode
// @Accept multipart/form-data
// @Produce application/json,application/octet-stream,text/csv
// @Param file formData file true "MIDI file to decode"
// @Param format query string false "json, npy, bin or csv (default: json)"
// @Param track query string false "Table to return for npy/bin/csv: track index or 'tempo' (default: 0)"
// @Param merge query bool false "Merge tracks into one stream"
// @Param unit query string false "ticks, microseconds or seconds"
// @Param notes_only query bool false "Keep only Note-On/Note-Off events"
// @Param durations query bool false "Compute note durations"
// @Param remove_note_off query bool false "Drop Note-Off records"
// @Param drop_unterminated query bool false "Drop notes never released"
// @Param program query int false "Program reported before any Program-Change"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/decode [post]
func (s *server) handleDecode(c *gin.Context) {
	format, err := converter.ParseFormat(c.DefaultQuery("format", string(converter.FormatJSON)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts, err := s.decodeOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, data, ok := s.upload(c)
	if !ok {
		return
	}

	res, err := converter.New(opts, s.logger).Decode(data)
	if err != nil {
		decodeFailed(c, err)
		return
	}

	var buf bytes.Buffer
	if format == converter.FormatJSON {
		err = converter.WriteJSON(&buf, res)
	} else {
		table, terr := selectTable(res, c.DefaultQuery("track", "0"))
		if terr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": terr.Error()})
			return
		}
		err = converter.EncodeTable(&buf, table, format)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	outputName := strings.TrimSuffix(name, filepath.Ext(name))
	if outputName == "" {
		outputName = "decoded"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s%s", outputName, format.Extension()))
	c.Header("X-Tensormidi-Tracks", strconv.Itoa(len(res.Tracks)))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// handleInspect godoc
// @Summary Summarize a MIDI file
// @Description Upload a MIDI file and receive per-track statistics
// @Tags decode
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to inspect"
// @Success 200 {object} converter.Info
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/inspect [post]
func (s *server) handleInspect(c *gin.Context) {
	_, data, ok := s.upload(c)
	if !ok {
		return
	}
	info, err := converter.Inspect(data)
	if err != nil {
		decodeFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// handleVerify godoc
// @Summary Cross-check a MIDI file
// @Description Decodes the upload with two independent readers and reports differences
// @Tags decode
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to verify"
// @Success 200 {object} converter.CheckReport
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/verify [post]
func (s *server) handleVerify(c *gin.Context) {
	_, data, ok := s.upload(c)
	if !ok {
		return
	}
	report, err := converter.CrossCheck(data)
	if err != nil {
		decodeFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// upload reads the multipart "file" field. It writes the error response
// itself and reports ok=false on failure.
func (s *server) upload(c *gin.Context) (name string, data []byte, ok bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File too large"})
			return "", nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return "", nil, false
	}
	defer func() { _ = file.Close() }()

	data, err = io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return "", nil, false
	}
	return header.Filename, data, true
}

func decodeFailed(c *gin.Context, err error) {
	_ = c.Error(err)
	var de *smf.DecodeError
	if errors.As(err, &de) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  err.Error(),
			"kind":   de.Kind.String(),
			"offset": de.Offset,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (s *server) decodeOptions(c *gin.Context) (tensormidi.Options, error) {
	opts := s.defaults

	var err error
	if opts.MergeTracks, err = queryBool(c, "merge", opts.MergeTracks); err != nil {
		return opts, err
	}
	if opts.NotesOnly, err = queryBool(c, "notes_only", opts.NotesOnly); err != nil {
		return opts, err
	}
	if opts.Durations, err = queryBool(c, "durations", opts.Durations); err != nil {
		return opts, err
	}
	if v, ok := c.GetQuery("unit"); ok {
		if opts.TimeUnit, err = tensormidi.ParseTimeUnit(v); err != nil {
			return opts, err
		}
	}
	if _, ok := c.GetQuery("remove_note_off"); ok {
		remove, err := queryBool(c, "remove_note_off", false)
		if err != nil {
			return opts, err
		}
		tensormidi.WithRemoveNoteOff(remove)(&opts)
	}
	drop, err := queryBool(c, "drop_unterminated", opts.Unterminated == tensormidi.UnterminatedDrop)
	if err != nil {
		return opts, err
	}
	if drop {
		opts.Unterminated = tensormidi.UnterminatedDrop
	} else {
		opts.Unterminated = tensormidi.UnterminatedEmit
	}
	if v, ok := c.GetQuery("program"); ok {
		p, err := strconv.ParseUint(v, 10, 8)
		if err != nil || p > 127 {
			return opts, fmt.Errorf("invalid program %q", v)
		}
		opts.DefaultProgram = uint8(p)
	}
	return opts, nil
}

func queryBool(c *gin.Context, key string, def bool) (bool, error) {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}

func selectTable(res *tensormidi.Result, track string) (*tensormidi.Table, error) {
	if track == "tempo" {
		return res.Tempos, nil
	}
	i, err := strconv.Atoi(track)
	if err != nil || i < 0 || i >= len(res.Tracks) {
		return nil, fmt.Errorf("track %q out of range (have %d)", track, len(res.Tracks))
	}
	return res.Tracks[i], nil
}
