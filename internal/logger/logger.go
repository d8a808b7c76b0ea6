package logger

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ClubLedger/internal/config"

	"github.com/rs/zerolog"
)

// LoggerService owns the rotating log file and the structured logger writing into it.
type LoggerService struct {
	Config        map[string]interface{}
	file          *os.File
	mu            sync.Mutex
	stopCh        chan struct{}
	wg            sync.WaitGroup
	currentLog    string
	maxFileBytes  int64
	retentionDays int
	folderPath    string
	console       bool
	log           zerolog.Logger
}

func NewLoggerService(cfg map[string]interface{}) *LoggerService {
	folder := config.ToString(cfg["folder_path"])
	if folder == "" {
		folder = config.DefaultLogFolder
	}
	console, _ := cfg["console"].(bool)
	return &LoggerService{
		Config:        cfg,
		stopCh:        make(chan struct{}),
		maxFileBytes:  int64(config.ToInt(cfg["max_file_mb"])) * 1024 * 1024,
		retentionDays: config.ToInt(cfg["retention_days"]),
		folderPath:    folder,
		console:       console,
		log:           zerolog.Nop(),
	}
}

func (l *LoggerService) Name() string {
	return "logger"
}

func (l *LoggerService) Start() error {
	l.mu.Lock()
	if err := os.MkdirAll(l.folderPath, 0755); err != nil {
		l.mu.Unlock()
		return err
	}
	logFile := l.nextLogFileName()
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.mu.Unlock()
		return err
	}
	l.file = file
	l.currentLog = logFile
	log.SetOutput(l)

	var w io.Writer = l
	if l.console {
		w = zerolog.MultiLevelWriter(l, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	l.log = NewWithWriter(w)
	l.mu.Unlock()

	l.log.Info().Str("file", logFile).Msg("logger started")

	// background goroutine for rotation and retention
	l.wg.Add(1)
	go l.backgroundWorker()

	return nil
}

func (l *LoggerService) Stop() error {
	close(l.stopCh)
	l.wg.Wait()
	l.log.Info().Msg("logger stopping")
	l.mu.Lock()
	defer l.mu.Unlock()
	log.SetOutput(os.Stderr)
	l.log = zerolog.Nop()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Write appends to the current log file. It lets the service stand behind both the
// standard library logger and zerolog across rotations.
func (l *LoggerService) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

// Logger returns the structured logger bound to the log file.
func (l *LoggerService) Logger() zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log
}

func (l *LoggerService) active() (zerolog.Logger, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.log, l.file != nil
}

// CurrentFile is the path being written to.
func (l *LoggerService) CurrentFile() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLog
}

func (l *LoggerService) nextLogFileName() string {
	timestamp := time.Now().Format("20060102_150405.000")
	return filepath.Join(l.folderPath, fmt.Sprintf("ledger_%s.log", timestamp))
}

func (l *LoggerService) rotateIfNeeded() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil || l.maxFileBytes <= 0 {
		return nil
	}
	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxFileBytes {
		return nil
	}
	newLog := l.nextLogFileName()
	file, err := os.OpenFile(newLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	l.file.Close()
	l.file = file
	l.currentLog = newLog
	return nil
}

func (l *LoggerService) backgroundWorker() {
	defer l.wg.Done()
	ticker := time.NewTicker(10 * time.Second)
	retentionTicker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	defer retentionTicker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			if err := l.rotateIfNeeded(); err != nil {
				l.log.Error().Err(err).Msg("log rotation failed")
			}
		case <-retentionTicker.C:
			l.zipAndCleanOldLogs(time.Now())
		}
	}
}

// zipAndCleanOldLogs moves .log files last written before the retention window into a
// dated zip archive.
func (l *LoggerService) zipAndCleanOldLogs(now time.Time) {
	if l.retentionDays <= 0 {
		return
	}
	cutoff := now.AddDate(0, 0, -l.retentionDays)
	files, err := os.ReadDir(l.folderPath)
	if err != nil {
		return
	}
	current := l.CurrentFile()
	var old []string
	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".log" {
			continue
		}
		fullPath := filepath.Join(l.folderPath, f.Name())
		info, err := os.Stat(fullPath)
		if err != nil || info.ModTime().After(cutoff) || fullPath == current {
			continue
		}
		old = append(old, fullPath)
	}
	if len(old) == 0 {
		return
	}

	zipName := filepath.Join(l.folderPath, fmt.Sprintf("logs_%s.zip", now.Format("20060102")))
	zipFile, err := os.OpenFile(zipName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer zipFile.Close()
	zipWriter := zip.NewWriter(zipFile)
	defer zipWriter.Close()

	for _, fullPath := range old {
		w, err := zipWriter.Create(filepath.Base(fullPath))
		if err != nil {
			continue
		}
		src, err := os.Open(fullPath)
		if err != nil {
			continue
		}
		_, err = io.Copy(w, src)
		src.Close()
		if err == nil {
			os.Remove(fullPath)
		}
	}
}

// LogAudit records one audit event with its fields.
func (l *LoggerService) LogAudit(event string, fields map[string]interface{}) {
	audit(l.Logger(), event, fields)
}

func audit(lg zerolog.Logger, event string, fields map[string]interface{}) {
	lg.Info().Bool("audit", true).Str("event", event).Fields(fields).Msg(event)
}

var GlobalLogger *LoggerService

func SetGlobalLogger(l *LoggerService) {
	GlobalLogger = l
}

var fallback = New()

// L returns the structured logger of the running LoggerService, or a console logger
// before one is started.
func L() zerolog.Logger {
	if GlobalLogger != nil {
		if lg, ok := GlobalLogger.active(); ok {
			return lg
		}
	}
	return fallback
}

// LogAudit records an audit event through L.
func LogAudit(event string, fields map[string]interface{}) {
	audit(L(), event, fields)
}
