package bridge

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tetherctl/internal/model"
)

var (
	labelStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Render formats a snapshot for the terminal. Members are listed by
// interface name as "iface: serial".
func Render(snap model.BridgeSnapshot) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Bridge " + snap.Name))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("ipv4:"))
	b.WriteString(" ")
	b.WriteString(orNone(snap.IPv4))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("ipv6:"))
	b.WriteString(" ")
	b.WriteString(orNone(snap.IPv6))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("members:"))

	if len(snap.Members) == 0 {
		b.WriteString(" ")
		b.WriteString(faintStyle.Render("(none)"))
		return b.String()
	}

	serials := make([]string, 0, len(snap.Members))
	for serial := range snap.Members {
		serials = append(serials, serial)
	}
	sort.Slice(serials, func(i, j int) bool {
		a, c := snap.Members[serials[i]], snap.Members[serials[j]]
		if a != c {
			return a < c
		}
		return serials[i] < serials[j]
	})
	for _, serial := range serials {
		b.WriteString("\n\t")
		b.WriteString(snap.Members[serial])
		b.WriteString(": ")
		b.WriteString(serial)
	}
	return b.String()
}

func orNone(v string) string {
	if v == "" {
		return faintStyle.Render("(none)")
	}
	return v
}
