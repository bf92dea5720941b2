package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/hupe1980/agentcouncil/core"
)

// printer renders the event stream of one turn.
type printer struct {
	out       io.Writer
	depth     map[string]int
	streaming bool

	agent, tool, thinking, ok, fail, dim, bold func(a ...any) string
}

func newPrinter(out io.Writer, noColor bool) *printer {
	mk := func(attrs ...color.Attribute) func(a ...any) string {
		c := color.New(attrs...)
		if noColor {
			c.DisableColor()
		}
		return c.SprintFunc()
	}

	return &printer{
		out:      out,
		depth:    map[string]int{},
		agent:    mk(color.FgBlue, color.Bold),
		tool:     mk(color.FgCyan),
		thinking: mk(color.FgYellow),
		ok:       mk(color.FgGreen),
		fail:     mk(color.FgRed),
		dim:      mk(color.FgHiBlack),
		bold:     mk(color.Bold),
	}
}

func (p *printer) indent(agentID string) string {
	return strings.Repeat("  ", p.depth[agentID])
}

func (p *printer) print(e core.Event) {
	if e.Kind != core.EventMessageChunk && p.streaming {
		fmt.Fprintln(p.out)
		p.streaming = false
	}

	in := p.indent(e.AgentID)

	switch e.Kind {
	case core.EventSpawn:
		p.depth[e.AgentID] = e.Spawn.Depth
		in = p.indent(e.AgentID)
		fmt.Fprintf(p.out, "%s%s %s %s\n", in, p.agent(">"), p.agent(e.Spawn.Label), p.dim(e.Spawn.Description))
	case core.EventThinking:
		fmt.Fprintf(p.out, "%s  %s\n", in, p.thinking("~ "+e.Thinking.Text))
	case core.EventTool:
		p.printTool(in, e.Tool)
	case core.EventStatus:
		if *e.Status == core.StatusError {
			fmt.Fprintf(p.out, "%s  %s\n", in, p.fail(string(e.AgentType)+" failed"))
		}
	case core.EventResult:
		fmt.Fprintf(p.out, "%s  %s %s\n", in, p.ok("done:"), p.dim(firstLine(e.Result.Summary, 100)))
	case core.EventDiscovery:
		fmt.Fprintf(p.out, "%s  %s\n", in, e.Discovery.Prompt)
		for _, c := range e.Discovery.Commands {
			fmt.Fprintf(p.out, "%s    $ %s\n", in, p.tool(c))
		}
	case core.EventQuestion:
		fmt.Fprintf(p.out, "%s%s %s\n", in, p.bold("?"), p.bold(e.Question.Text))
	case core.EventMessageChunk:
		if !p.streaming {
			fmt.Fprintln(p.out)
			p.streaming = true
		}
		fmt.Fprint(p.out, e.Chunk.Text)
	case core.EventMessageDone:
		p.printDone(e.Done)
	case core.EventError:
		fmt.Fprintf(p.out, "%s%s %s %s\n", in, p.fail("!"), p.fail(e.Error.Message), p.dim("("+e.Error.Code+")"))
	}
}

func (p *printer) printTool(in string, t *core.ToolPayload) {
	switch t.Status {
	case core.ToolStarted:
		fmt.Fprintf(p.out, "%s  %s %s\n", in, p.tool("* "+t.Name), p.dim(formatInput(t.Input)))
	case core.ToolFailed:
		fmt.Fprintf(p.out, "%s  %s %s\n", in, p.fail("* "+t.Name+" failed:"), t.Error)
	}
}

func (p *printer) printDone(d *core.DonePayload) {
	if len(d.Citations) > 0 {
		fmt.Fprintf(p.out, "\n%s\n", p.bold("Sources"))
		for i, c := range d.Citations {
			fmt.Fprintf(p.out, "  [%d] %s %s\n", i+1, c.Title, p.dim(c.URL))
		}
	}

	if len(d.Commands) > 0 {
		fmt.Fprintf(p.out, "\n%s\n", p.bold("Commands"))
		for _, c := range d.Commands {
			mark := p.ok("ok")
			if !c.Validated {
				mark = p.fail("unverified")
				if c.Reason != "" {
					mark = p.fail(c.Reason)
				}
			}
			fmt.Fprintf(p.out, "  $ %s  %s %s\n", p.tool(c.Command), p.dim("["+string(c.Risk)+"]"), mark)
		}
	}

	m := d.Metrics
	fmt.Fprintf(p.out, "\n%s\n", p.dim(fmt.Sprintf("%d agents, %d tokens, %s", len(m.Agents), m.Tokens.TotalTokens, m.Duration.Round(time.Millisecond))))
}

func formatInput(in map[string]any) string {
	if len(in) == 0 {
		return ""
	}

	parts := make([]string, 0, len(in))
	for k, v := range in {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}

	sort.Strings(parts)

	return strings.Join(parts, " ")
}

func firstLine(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}

	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}

	return s
}
