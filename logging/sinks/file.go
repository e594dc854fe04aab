package sinks

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"tilewalk/client/logging"
)

// File writes events through zap to a size-rotated log file.
type File struct {
	logger *zap.Logger
	closer func() error
}

// NewFile opens a rotating file sink at cfg.Path.
func NewFile(cfg logging.FileConfig) (*File, error) {
	if cfg.Path == "" {
		return nil, errors.New("file sink requires a path")
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	sink := NewFileWithWriter(zapcore.AddSync(rotator))
	sink.closer = rotator.Close
	return sink, nil
}

// NewFileWithWriter builds the sink on an arbitrary zap write syncer.
func NewFileWithWriter(ws zapcore.WriteSyncer) *File {
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		MessageKey:    "event",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, zapcore.DebugLevel)
	return &File{logger: zap.New(core).Named("tilewalk")}
}

func (s *File) Write(event logging.Event) error {
	fields := make([]zap.Field, 0, 6+len(event.Extra))
	fields = append(fields,
		zap.Uint64("step", event.Step),
		zap.String("actor", formatEntity(event.Actor)),
	)
	if event.Category != "" {
		fields = append(fields, zap.String("category", event.Category))
	}
	if event.CommandID != "" {
		fields = append(fields, zap.String("commandId", event.CommandID))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	if len(event.Extra) > 0 {
		fields = append(fields, zap.Any("extra", event.Extra))
	}
	if ce := s.logger.Check(zapLevel(event.Severity), string(event.Type)); ce != nil {
		ce.Time = event.Time
		ce.Write(fields...)
	}
	return nil
}

func (s *File) Close(context.Context) error {
	err := s.logger.Sync()
	if s.closer != nil {
		if cerr := s.closer(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func zapLevel(sev logging.Severity) zapcore.Level {
	switch sev {
	case logging.SeverityDebug:
		return zapcore.DebugLevel
	case logging.SeverityWarn:
		return zapcore.WarnLevel
	case logging.SeverityError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
