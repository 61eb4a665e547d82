package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFormatPlain(t *testing.T) {
	flf := &FancyLogFormatter{UseColors: false}
	entry := &logrus.Entry{
		Time:    time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "staging area is empty",
		Data: logrus.Fields{
			"path":  "f.txt",
			"error": errors.New("boom"),
		},
	}

	data, err := flf.Format(entry)
	require.Nil(t, err)

	line := string(data)
	require.True(t, strings.HasPrefix(line, "04.03.2019/05:06:07 ⚠"), line)
	require.True(t, strings.HasSuffix(line, "staging area is empty [error=boom path=f.txt]\n"), line)
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, logrus.DebugLevel, ParseLevel("debug", logrus.InfoLevel))
	require.Equal(t, logrus.WarnLevel, ParseLevel(" Warning ", logrus.InfoLevel))
	require.Equal(t, logrus.WarnLevel, ParseLevel("warn", logrus.InfoLevel))
	require.Equal(t, logrus.ErrorLevel, ParseLevel("nonsense", logrus.ErrorLevel))
}

func TestWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	oldOut := logrus.StandardLogger().Out
	oldLevel := logrus.GetLevel()
	logrus.SetOutput(buf)
	logrus.SetLevel(logrus.DebugLevel)
	defer func() {
		logrus.SetOutput(oldOut)
		logrus.SetLevel(oldLevel)
	}()

	w := &Writer{Level: logrus.InfoLevel}
	n, err := w.Write([]byte("hello world\n"))
	require.Nil(t, err)
	require.Equal(t, 12, n)
	require.Contains(t, buf.String(), "hello world")
}
