package logging

import "time"

type Config struct {
	EnabledSinks     []string       `yaml:"sinks"`
	BufferSize       int            `yaml:"bufferSize"`
	MinimumSeverity  Severity       `yaml:"minimumSeverity"`
	Fields           map[string]any `yaml:"fields"`
	JSON             JSONConfig     `yaml:"json"`
	Console          ConsoleConfig  `yaml:"console"`
	DropWarnInterval time.Duration  `yaml:"dropWarnInterval"`
}

type JSONConfig struct {
	FilePath      string        `yaml:"filePath"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

type ConsoleConfig struct {
	UseColor bool `yaml:"useColor"`
}

func DefaultConfig() Config {
	return Config{
		EnabledSinks:     []string{"console"},
		BufferSize:       512,
		MinimumSeverity:  SeverityInfo,
		DropWarnInterval: 5 * time.Second,
		JSON: JSONConfig{
			FlushInterval: 2 * time.Second,
		},
	}
}

func (c Config) HasSink(name string) bool {
	for _, s := range c.EnabledSinks {
		if s == name {
			return true
		}
	}
	return false
}

func (c Config) CloneFields() map[string]any {
	if len(c.Fields) == 0 {
		return nil
	}
	copied := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		copied[k] = v
	}
	return copied
}
