package cogs

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// AdminCommands returns the slash command definitions reserved for
// configured administrators.
func (h *Handler) AdminCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "credits-add",
			Description: "Add credits to a user or server balance (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "User ID or server ID to credit",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "Number of credits to add",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "group",
					Description: "Credit the server balance instead of a user",
					Required:    false,
				},
			},
		},
		{
			Name:        "preset-add",
			Description: "Create or replace a preset style (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Trigger word",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "Prompt template (English)",
					Required:    true,
				},
			},
		},
		{
			Name:        "preset-remove",
			Description: "Delete a preset style (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Trigger word to delete",
					Required:    true,
				},
			},
		},
		{
			Name:        "preset-show",
			Description: "Show a preset's prompt template (admin)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Trigger word to inspect",
					Required:    true,
				},
			},
		},
	}
}

// RouteAdmin dispatches admin commands, rejecting callers that are not
// in the configured admin list. It reports whether the command name was
// one of ours.
func (h *Handler) RouteAdmin(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	name := i.ApplicationCommandData().Name
	switch name {
	case "credits-add", "preset-add", "preset-remove", "preset-show":
	default:
		return false
	}

	if !h.Config.IsAdmin(interactionUserID(i)) {
		respondText(s, i, "❌ This command is restricted to administrators.", true)
		return true
	}

	switch name {
	case "credits-add":
		h.handleCreditsAdd(s, i)
	case "preset-add":
		h.handlePresetAdd(s, i)
	case "preset-remove":
		h.handlePresetRemove(s, i)
	case "preset-show":
		h.handlePresetShow(s, i)
	}
	return true
}

func (h *Handler) handleCreditsAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var target string
	var amount int64
	var isGroup bool
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "target":
			target = opt.StringValue()
		case "amount":
			amount = opt.IntValue()
		case "group":
			isGroup = opt.BoolValue()
		}
	}

	if amount <= 0 {
		respondText(s, i, "❌ Amount must be positive.", true)
		return
	}

	balance := h.Gate.AdminCredit(target, amount, isGroup)
	kind := "user"
	if isGroup {
		kind = "server"
	}
	respondText(s, i, fmt.Sprintf("✅ Added %d credit(s) to %s %s (now: %d)", amount, kind, target, balance), false)
}

func (h *Handler) handlePresetAdd(s *discordgo.Session, i *discordgo.InteractionCreate) {
	var name, prompt string
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "name":
			name = opt.StringValue()
		case "prompt":
			prompt = opt.StringValue()
		}
	}

	h.Presets.Add(name, prompt)
	respondText(s, i, fmt.Sprintf("✅ Preset `%s` saved.", name), false)
}

func (h *Handler) handlePresetRemove(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Options[0].StringValue()

	if h.Presets.Delete(name) {
		respondText(s, i, fmt.Sprintf("🗑️ Preset `%s` deleted.", name), false)
	} else {
		respondText(s, i, fmt.Sprintf("❌ No preset named `%s`.", name), true)
	}
}

func (h *Handler) handlePresetShow(s *discordgo.Session, i *discordgo.InteractionCreate) {
	name := i.ApplicationCommandData().Options[0].StringValue()

	prompt := h.Presets.Get(name)
	if prompt == "" {
		respondText(s, i, fmt.Sprintf("❌ No preset named `%s`.", name), true)
		return
	}
	respondText(s, i, fmt.Sprintf("🔍 `%s`:\n%s", name, prompt), true)
}
