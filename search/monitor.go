package search

import (
	"github.com/poiesic/pdfqa/vectorindex"
)

// Monitor provides hooks to observe question answering.
// Implement this interface to trace the retrieved passages and the prompt.
type Monitor interface {
	Start(question string)
	AfterRetrieval(hits []vectorindex.Hit)
	BeforeGeneration(provider, model, prompt string)
	Finish(answer *Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                     {}
func (n *noopMonitor) AfterRetrieval(_ []vectorindex.Hit) {}
func (n *noopMonitor) BeforeGeneration(_, _, _ string)    {}
func (n *noopMonitor) Finish(_ *Answer)                   {}
