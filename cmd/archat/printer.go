package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/xperiencelabs/archat/internal/content"
	"github.com/xperiencelabs/archat/internal/interfaces"
)

// printerSink writes session events as lines, for the one-shot commands
type printerSink struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *content.Renderer

	ready  bool
	visual bool
	errors []string
}

func newPrinterSink(out io.Writer, renderer *content.Renderer) *printerSink {
	return &printerSink{out: out, renderer: renderer}
}

func (p *printerSink) OnSessionReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ready = true
}

func (p *printerSink) OnMessage(msg interfaces.ChatMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, p.renderer.RenderMessage(msg))
}

func (p *printerSink) OnVisualizationAvailable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visual = true
}

func (p *printerSink) OnError(reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errors = append(p.errors, reason)
	fmt.Fprintln(p.out, p.renderer.RenderError(reason))
}

func (p *printerSink) sessionReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *printerSink) visualizationAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visual
}

func (p *printerSink) reported() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.errors...)
}
