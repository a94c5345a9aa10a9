package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debug("debug")
	logger.Infof("info %d", 1)
	logger.Warnw("warn", "inliers", 6)
	test.That(t, logs.Len(), test.ShouldEqual, 3)

	logger.SetLevel(WARN)
	logger.Info("dropped")
	logger.Errorf("kept %s", "error")
	test.That(t, logs.Len(), test.ShouldEqual, 4)

	entries := logs.All()
	test.That(t, entries[1].Message, test.ShouldEqual, "info 1")
	test.That(t, entries[2].ContextMap()["inliers"], test.ShouldEqual, int64(6))
	test.That(t, entries[3].Message, test.ShouldEqual, "kept error")
}

func TestUnpairedKey(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("msg", "lonely")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].ContextMap()["lonely"], test.ShouldEqual, "unpaired log key")
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewBlankLogger("pnp")
	logger.AddAppender(NewWriterAppender(&buf))

	sub := logger.Sublogger("ransac")
	sub.Infow("finished", "iterations", 50)

	line := buf.String()
	test.That(t, line, test.ShouldContainSubstring, "INFO")
	test.That(t, line, test.ShouldContainSubstring, "pnp.ransac")
	test.That(t, line, test.ShouldContainSubstring, "logging/impl_test.go")
	test.That(t, line, test.ShouldContainSubstring, `"iterations": 50`)
	test.That(t, strings.Count(line, "\n"), test.ShouldEqual, 1)

	// sublogger levels are independent of the parent.
	sub.SetLevel(ERROR)
	sub.Warn("dropped")
	logger.Warn("kept")
	test.That(t, strings.Count(buf.String(), "\n"), test.ShouldEqual, 2)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelFromString(t *testing.T) {
	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{"Error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown log level")

	var level Level
	test.That(t, level.UnmarshalJSON([]byte(`"warn"`)), test.ShouldBeNil)
	test.That(t, level, test.ShouldEqual, WARN)
	out, err := level.MarshalJSON()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldEqual, `"warn"`)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pnp.log")
	appender := NewFileAppender(path)

	logger := NewBlankLogger("pnp")
	logger.AddAppender(appender)
	logger.Infow("estimated pose", "inliers", 6)
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, appender.Close(), test.ShouldBeNil)

	//nolint:gosec
	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "estimated pose")
	test.That(t, string(contents), test.ShouldContainSubstring, `"inliers": 6`)
}
