package log

import (
	"io"
	"os"
	"sync"
)

// MultipleWriter 日志多端输出，写入失败的端会被移除
type MultipleWriter struct {
	sync.Mutex
	writers []io.Writer
}

func (m *MultipleWriter) Write(p []byte) (n int, err error) {
	m.Lock()
	defer m.Unlock()
	alive := m.writers[:0]
	for _, w := range m.writers {
		if _, err = w.Write(p); err == nil {
			alive = append(alive, w)
		}
	}
	m.writers = alive
	return len(p), nil
}

func (m *MultipleWriter) Delete(writer io.Writer) {
	m.Lock()
	defer m.Unlock()
	for i, w := range m.writers {
		if w == writer {
			m.writers = append(m.writers[:i], m.writers[i+1:]...)
			return
		}
	}
}

func (m *MultipleWriter) Add(writer io.Writer) {
	m.Lock()
	m.writers = append(m.writers, writer)
	m.Unlock()
}

func (m *MultipleWriter) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.writers)
}

var multipleWriter = &MultipleWriter{writers: []io.Writer{os.Stderr}}

func AddWriter(writer io.Writer) {
	multipleWriter.Add(writer)
}

func DeleteWriter(writer io.Writer) {
	multipleWriter.Delete(writer)
}
