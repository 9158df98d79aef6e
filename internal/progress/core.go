package progress

import (
	"go.uber.org/zap/zapcore"
)

// core is a zapcore.Core that forwards entries to a Sink as log events.
type core struct {
	zapcore.LevelEnabler
	sink   Sink
	fields []zapcore.Field
}

// NewCore returns a core that mirrors entries at or above enab into sink.
// Tee it with the file core so the presentation surface sees the same log.
func NewCore(sink Sink, enab zapcore.LevelEnabler) zapcore.Core {
	return &core{LevelEnabler: enab, sink: sink}
}

func (c *core) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &core{LevelEnabler: c.LevelEnabler, sink: c.sink, fields: merged}
}

func (c *core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range c.fields {
		f.AddTo(enc)
	}
	for _, f := range fields {
		f.AddTo(enc)
	}
	var m map[string]interface{}
	if len(enc.Fields) > 0 {
		m = enc.Fields
	}
	c.sink.Log(ent.Level, ent.Message, m)
	return nil
}

func (c *core) Sync() error {
	return nil
}
