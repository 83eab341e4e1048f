package stage

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func benchDirector(b *testing.B) *Director {
	return NewDirectorWithConfig(b, mockScene{mode: "benchmark"}, Config{
		Timeout:      time.Second,
		CaptureViews: false,
	}).Start()
}

// BenchmarkSendMessage measures the synchronous send path: program send,
// sequence wait and publish.
func BenchmarkSendMessage(b *testing.B) {
	director := benchDirector(b)
	defer director.Stop()

	msg := tea.KeyMsg{Type: tea.KeyRight}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		director.sendMessage(msg)
	}
}

// BenchmarkPublishOverflow publishes faster than the sync goroutine can drain,
// so the non-blocking send drops updates.
func BenchmarkPublishOverflow(b *testing.B) {
	director := benchDirector(b)
	defer director.Stop()

	wrapper := sceneWrapper{Scene: mockScene{}, director: director}
	msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		wrapper.Update(msg)
	}

	stats := director.SynchronizationStats()
	b.ReportMetric(float64(stats["updates_dropped"]), "dropped")
}

// BenchmarkConcurrentReads reads scene state while the program keeps
// publishing.
func BenchmarkConcurrentReads(b *testing.B) {
	director := benchDirector(b)
	defer director.Stop()

	go func() {
		for i := 0; i < 1000 && !director.HasFailed(); i++ {
			director.program.Send(tea.KeyMsg{Type: tea.KeyRight})
		}
	}()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = director.currentView()
			_ = director.currentMode()
			_ = director.currentInput()
		}
	})
}
