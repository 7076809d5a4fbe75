package logger

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevelIsCaseInsensitive(t *testing.T) {
	l := NewStandard()
	l.SetLevel("warn")
	assert.Equal(t, WarnLevel, l.level)
	l.SetLevel("ERROR")
	assert.Equal(t, ErrorLevel, l.level)
}

func TestWithMergesFieldsWithoutMutatingParent(t *testing.T) {
	base := NewStandard()
	child := base.With(Field{Key: "session_id", Value: "s1"}).(*Standard)

	assert.Empty(t, base.fields)
	assert.Equal(t, "s1", child.fields["session_id"])
}

func TestLevelFromEnvDefaultsToInfo(t *testing.T) {
	old := os.Getenv("LOG_LEVEL")
	os.Unsetenv("LOG_LEVEL")
	defer os.Setenv("LOG_LEVEL", old)

	assert.Equal(t, "INFO", LevelFromEnv())

	os.Setenv("LOG_LEVEL", "DEBUG")
	assert.Equal(t, "DEBUG", LevelFromEnv())
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "WARNING", WarnLevel.String())
	assert.Equal(t, "ERROR", ErrorLevel.String())
}
