// Copyright (C) 2025 Redline AI (oss@redlineai.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/RedlineAI/RedlineFOSS/pkg/ux"
	"github.com/RedlineAI/RedlineFOSS/services/styleengine/events"
)

// Messages fed into the progress model from the event fabric.
type (
	progressMsg struct {
		step    string
		detail  string
		percent float64
	}
	stationMsg struct {
		station string
		pass    int
	}
	finishedMsg struct{ failed bool }
)

// progressModel is the live bubbletea view for a running analysis or
// rewrite.
type progressModel struct {
	spinner spinner.Model
	bar     progress.Model
	step    string
	detail  string
	failed  bool
	done    bool
}

func newProgressModel() progressModel {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(ux.ColorEmber)
	return progressModel{
		spinner: sp,
		bar:     progress.New(progress.WithDefaultGradient()),
		step:    "starting",
	}
}

func (m progressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.failed = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.step = msg.step
		m.detail = msg.detail
		return m, m.bar.SetPercent(msg.percent / 100)

	case stationMsg:
		m.step = fmt.Sprintf("station %s", msg.station)
		m.detail = fmt.Sprintf("pass %d", msg.pass)
		return m, nil

	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd

	case finishedMsg:
		m.done = true
		m.failed = msg.failed
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	line := fmt.Sprintf("%s %s", m.spinner.View(), m.step)
	if m.detail != "" {
		line += ux.Styles.Muted.Render(" · " + m.detail)
	}
	return line + "\n" + m.bar.View() + "\n"
}

// progressView bridges fabric events for one session onto a running
// bubbletea program.
type progressView struct {
	prog    *tea.Program
	fabric  *events.Fabric
	session string
	subs    []string
	done    chan struct{}
}

func newProgressView(fabric *events.Fabric, sessionID string) *progressView {
	v := &progressView{
		prog:    tea.NewProgram(newProgressModel()),
		fabric:  fabric,
		session: sessionID,
		done:    make(chan struct{}),
	}

	v.subs = append(v.subs, fabric.Subscribe(sessionID, events.ChannelProgress, func(ev events.Event) {
		if data, ok := ev.Data.(events.ProgressData); ok {
			v.prog.Send(progressMsg{
				step:    data.Step,
				detail:  data.Detail,
				percent: float64(data.Progress),
			})
		}
	}))
	v.subs = append(v.subs, fabric.Subscribe(sessionID, events.ChannelStationProgress, func(ev events.Event) {
		if data, ok := ev.Data.(events.StationProgressData); ok {
			v.prog.Send(stationMsg{station: data.Station, pass: data.Pass})
		}
	}))
	v.subs = append(v.subs, fabric.Subscribe(sessionID, events.ChannelCompletion, func(ev events.Event) {
		v.prog.Send(finishedMsg{failed: ev.Type == events.TypeAnalysisFailed})
	}))
	return v
}

// Start runs the view until a completion event or Finish.
func (v *progressView) Start() {
	go func() {
		defer close(v.done)
		_, _ = v.prog.Run()
	}()
}

// Finish stops the view and detaches from the fabric.
func (v *progressView) Finish() {
	v.prog.Send(finishedMsg{})
	<-v.done
	for _, id := range v.subs {
		v.fabric.Unsubscribe(v.session, id)
	}
}
