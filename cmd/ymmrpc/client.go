package main

import (
	"github.com/namakemono-san/ymmrpc/internal/discord"
	"github.com/namakemono-san/ymmrpc/internal/presence"
)

// discordPresence adapts a [discord.Client] to [presence.Client].
type discordPresence struct {
	client *discord.Client
}

func newDiscordPresence(appID string, cb presence.Callbacks) presence.Client {
	h := discord.Handlers{OnError: cb.OnError}
	if cb.OnReady != nil {
		h.OnReady = func(u discord.User) { cb.OnReady(u.DisplayName()) }
	}
	return &discordPresence{client: discord.NewClient(appID, h)}
}

func (d *discordPresence) Initialize() error { return d.client.Connect() }

func (d *discordPresence) SetPresence(p presence.Payload) error {
	return d.client.SetActivity(toActivity(p))
}

func (d *discordPresence) ClearPresence() error { return d.client.ClearActivity() }
func (d *discordPresence) Dispose() error       { return d.client.Close() }
func (d *discordPresence) IsInitialized() bool  { return d.client.Ready() }
func (d *discordPresence) IsDisposed() bool     { return d.client.Closed() }

// toActivity converts a payload to the wire activity, leaving out empty
// sections.
func toActivity(p presence.Payload) *discord.Activity {
	a := &discord.Activity{
		Details: p.Details,
		State:   p.State,
	}
	if !p.StartTime.IsZero() {
		a.Timestamps = &discord.Timestamps{Start: p.StartTime.Unix()}
	}
	if p.LargeImageKey != "" || p.LargeImageText != "" || p.SmallImageKey != "" || p.SmallImageText != "" {
		a.Assets = &discord.Assets{
			LargeImage: p.LargeImageKey,
			LargeText:  p.LargeImageText,
			SmallImage: p.SmallImageKey,
			SmallText:  p.SmallImageText,
		}
	}
	for _, b := range p.Buttons {
		a.Buttons = append(a.Buttons, discord.Button{Label: b.Label, URL: b.URL})
	}
	return a
}
