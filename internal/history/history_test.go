package history

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

const testPath = "/home/user/.local/share/tinysh/history.jsonl"

func logN(t *testing.T, l *Logger, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := l.Log(Record{
			Line:     "ls -l | wc -l",
			Commands: []string{"ls", "wc"},
			Duration: time.Duration(i) * time.Millisecond,
			Cwd:      "/tmp",
		})
		if err != nil {
			t.Fatalf("log entry %d: %v", i, err)
		}
	}
}

func TestLogAndVerify(t *testing.T) {
	fsys := afero.NewMemMapFs()

	logger, err := NewLogger(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	logN(t, logger, 5)

	if err := Verify(fsys, testPath); err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	fsys := afero.NewMemMapFs()

	logger, err := NewLogger(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	logN(t, logger, 3)

	data, err := afero.ReadFile(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), `"exit_code":0`, `"exit_code":1`, 1)
	if tampered == string(data) {
		t.Fatal("test setup: nothing to tamper with")
	}
	if err := afero.WriteFile(fsys, testPath, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	if err := Verify(fsys, testPath); err == nil {
		t.Fatal("expected verify to detect tampering")
	}
}

func TestVerifyDetectsSequenceGap(t *testing.T) {
	fsys := afero.NewMemMapFs()

	logger, err := NewLogger(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	logN(t, logger, 5)

	data, err := afero.ReadFile(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := splitLines(data)
	remaining := append(lines[:2], lines[3:]...)
	var newData []byte
	for _, line := range remaining {
		newData = append(newData, line...)
		newData = append(newData, '\n')
	}
	if err := afero.WriteFile(fsys, testPath, newData, 0600); err != nil {
		t.Fatal(err)
	}

	err = Verify(fsys, testPath)
	if err == nil || !strings.Contains(err.Error(), "sequence gap") {
		t.Fatalf("expected a sequence gap, got %v", err)
	}
}

func TestVerifyEmptyLog(t *testing.T) {
	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, testPath, []byte{}, 0600); err != nil {
		t.Fatal(err)
	}

	if err := Verify(fsys, testPath); err != nil {
		t.Fatalf("empty log should be valid: %v", err)
	}
}

func TestLoggerResumesChain(t *testing.T) {
	fsys := afero.NewMemMapFs()

	first, err := NewLogger(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	logN(t, first, 2)

	second, err := NewLogger(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	logN(t, second, 2)

	if err := Verify(fsys, testPath); err != nil {
		t.Fatalf("chain broken across loggers: %v", err)
	}
	entries, err := Tail(fsys, testPath, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 || entries[3].Seq != 4 {
		t.Fatalf("expected 4 entries ending at seq 4, got %+v", entries)
	}
}

func TestTail(t *testing.T) {
	fsys := afero.NewMemMapFs()

	logger, err := NewLogger(fsys, testPath)
	if err != nil {
		t.Fatal(err)
	}
	logN(t, logger, 10)

	entries, err := Tail(fsys, testPath, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Seq != 8 || entries[2].Seq != 10 {
		t.Fatalf("expected seq 8..10, got %d..%d", entries[0].Seq, entries[2].Seq)
	}
	if entries[0].Cwd != "/tmp" || len(entries[0].Commands) != 2 {
		t.Fatalf("entry fields not preserved: %+v", entries[0])
	}
}

func TestTailMissingFile(t *testing.T) {
	if _, err := Tail(afero.NewMemMapFs(), testPath, 5); err == nil {
		t.Fatal("expected an error for a missing log")
	}
}
