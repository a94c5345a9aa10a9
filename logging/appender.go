package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Appender is an output for log entries. This is a subset of the `zapcore.Core` interface, so an
// observer core from `zaptest/observer` is a valid appender.
type Appender interface {
	// Write submits a structured log entry to the appender for logging.
	Write(zapcore.Entry, []zapcore.Field) error
	// Sync is for signaling that any buffered logs to `Write` should be flushed. E.g: at shutdown.
	Sync() error
}

// ConsoleAppender writes tab separated log lines to an `io.Writer`.
type ConsoleAppender struct {
	mu      sync.Mutex
	writer  io.Writer
	encoder zapcore.Encoder
}

// NewStdoutAppender creates a new appender that writes to stdout.
func NewStdoutAppender() *ConsoleAppender {
	return NewWriterAppender(os.Stdout)
}

// NewWriterAppender creates a new appender that writes to the given writer.
func NewWriterAppender(writer io.Writer) *ConsoleAppender {
	return &ConsoleAppender{writer: writer, encoder: zapcore.NewConsoleEncoder(NewZapEncoderConfig())}
}

// Write outputs the log entry to the underlying writer.
func (appender *ConsoleAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	buf, err := appender.encoder.EncodeEntry(entry, fields)
	if err != nil {
		return err
	}
	defer buf.Free()

	appender.mu.Lock()
	defer appender.mu.Unlock()
	_, err = appender.writer.Write(buf.Bytes())
	return err
}

// Sync flushes the writer when it supports syncing (e.g: an `*os.File`).
func (appender *ConsoleAppender) Sync() error {
	if syncer, ok := appender.writer.(interface{ Sync() error }); ok && appender.writer != os.Stdout {
		return syncer.Sync()
	}
	return nil
}

// FileAppender writes console formatted log lines to a size rotated file.
type FileAppender struct {
	*ConsoleAppender
	logger *lumberjack.Logger
}

// NewFileAppender creates an appender writing to filename. The file is rotated once it reaches
// 100 MB and the three most recent backups are kept compressed.
func NewFileAppender(filename string) *FileAppender {
	logger := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 3,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender: NewWriterAppender(logger), logger: logger}
}

// Sync is a noop; lumberjack writes through to the file.
func (appender *FileAppender) Sync() error {
	return nil
}

// Close closes the current log file.
func (appender *FileAppender) Close() error {
	appender.mu.Lock()
	defer appender.mu.Unlock()
	return appender.logger.Close()
}
