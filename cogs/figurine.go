package cogs

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"figurine-bot/config"
	"figurine-bot/economy"
	"figurine-bot/imagegen"
	"figurine-bot/presets"

	"github.com/bwmarrin/discordgo"
)

// RequestCost is how many credits one image generation consumes.
const RequestCost = 1

// Handler owns the collaborators the commands need. It is constructed
// once in main and shared by all interaction callbacks.
type Handler struct {
	Config  *config.Config
	Gate    *economy.Gatekeeper
	Checkin *economy.CheckinService
	Presets *presets.Store
	Images  *imagegen.Client
}

// Commands returns the slash command definitions this handler serves.
func (h *Handler) Commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "figurine",
			Description: "Transform an image with a preset style",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "style",
					Description: "Preset style to apply (see /styles)",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "image",
					Description: "Source image to transform",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "prompt",
					Description: "Extra description appended to the preset",
					Required:    false,
				},
			},
		},
		{
			Name:        "checkin",
			Description: "Claim your daily free credits",
		},
		{
			Name:        "balance",
			Description: "Check your remaining credits",
		},
		{
			Name:        "styles",
			Description: "List the available preset styles",
		},
		{
			Name:        "help",
			Description: "How to use the figurine bot",
		},
	}
}

// Route dispatches an application command interaction to its handler.
// It reports whether the command name was one of ours.
func (h *Handler) Route(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	switch i.ApplicationCommandData().Name {
	case "figurine":
		h.handleFigurine(s, i)
	case "checkin":
		h.handleCheckin(s, i)
	case "balance":
		h.handleBalance(s, i)
	case "styles":
		h.handleStyles(s, i)
	case "help":
		h.handleHelp(s, i)
	default:
		return false
	}
	return true
}

// interactionUserID works for both guild and DM interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, text string, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: text}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		log.Printf("Failed to respond to interaction: %v", err)
	}
}

func followupText(s *discordgo.Session, i *discordgo.InteractionCreate, text string) {
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: text,
	}); err != nil {
		log.Printf("Failed to send followup: %v", err)
	}
}

func (h *Handler) handleFigurine(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)
	groupID := i.GuildID

	if h.Config.IsBlacklisted(userID) {
		respondText(s, i, "❌ You are not allowed to use this command.", true)
		return
	}

	data := i.ApplicationCommandData()
	var style, extra string
	var attachmentID string
	for _, opt := range data.Options {
		switch opt.Name {
		case "style":
			style = opt.StringValue()
		case "prompt":
			extra = opt.StringValue()
		case "image":
			if id, ok := opt.Value.(string); ok {
				attachmentID = id
			}
		}
	}

	template := h.Presets.Get(style)
	if template == "" {
		respondText(s, i, fmt.Sprintf("❌ Unknown style `%s`. Use /styles to see what is available.", style), true)
		return
	}

	// Admins generate for free.
	skipCost := h.Config.IsAdmin(userID)

	var receipt *economy.Receipt
	if !skipCost {
		decision := h.Gate.Admit(userID, groupID, RequestCost)
		if !decision.Admitted {
			tip := decision.Reason
			if h.Config.Economy.EnableCheckin {
				tip += "\n📅 Tip: use /checkin to claim free daily credits."
			}
			respondText(s, i, "❌ "+tip, false)
			return
		}
		receipt = decision.Receipt
	}

	// Generation takes a while; acknowledge now and follow up later.
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Printf("Failed to defer interaction: %v", err)
		h.refund(receipt, userID)
		return
	}

	ctx := context.Background()

	var images [][]byte
	if attachmentID != "" && data.Resolved != nil {
		if att, ok := data.Resolved.Attachments[attachmentID]; ok {
			img, err := h.Images.Fetch(ctx, att.URL)
			if err != nil {
				log.Printf("Failed to fetch attachment for %s: %v", userID, err)
			} else {
				images = append(images, img)
			}
		}
	}

	// Text-only presets work without a source image; everything else
	// needs one, and nothing was generated yet so the cost comes back.
	if len(images) == 0 && !strings.Contains(template, "text_only") {
		h.refund(receipt, userID)
		followupText(s, i, "⚠️ Please attach an image to transform. Your credit was not spent.")
		return
	}

	fullPrompt := template
	if extra != "" {
		fullPrompt = template + ", " + extra
	}

	result, err := h.Images.Generate(ctx, images, fullPrompt)
	if err != nil {
		h.refund(receipt, userID)
		log.Printf("Generation failed for user %s: %v", userID, err)
		followupText(s, i, "❌ Generation failed, your credit has been refunded.")
		return
	}

	info := fmt.Sprintf("✅ %s done", style)
	if !skipCost && h.Config.Economy.EnableUserLimit {
		info += fmt.Sprintf(" | credits left: %d", h.Gate.UserBalance(userID))
	}

	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: info,
		Files: []*discordgo.File{
			{
				Name:        style + ".png",
				ContentType: "image/png",
				Reader:      bytes.NewReader(result),
			},
		},
	}); err != nil {
		log.Printf("Failed to deliver image to %s: %v", userID, err)
	}
}

// refund returns an admitted debit after a downstream failure. A nil
// receipt (admin or unrestricted request) is a no-op.
func (h *Handler) refund(receipt *economy.Receipt, userID string) {
	if receipt == nil {
		return
	}
	if err := h.Gate.Refund(receipt); err != nil {
		log.Printf("Refund for user %s failed: %v", userID, err)
		return
	}
	log.Printf("Refunded %d credit(s) to %s ledger for user %s",
		receipt.Amount(), receipt.Source(), userID)
}

func (h *Handler) handleCheckin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	result := h.Checkin.Claim(interactionUserID(i))

	switch result.Status {
	case economy.CheckinDisabled:
		respondText(s, i, "❌ Check-in is not enabled.", true)
	case economy.CheckinAlreadyDone:
		respondText(s, i, fmt.Sprintf("📅 You already checked in today. Credits left: %d", result.Balance), false)
	case economy.CheckinGranted:
		respondText(s, i, fmt.Sprintf("🎉 Check-in complete! You received %d credit(s).\nCredits left: %d",
			result.Reward, result.Balance), false)
	}
}

func (h *Handler) handleBalance(s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := interactionUserID(i)

	msg := fmt.Sprintf("👤 Your credits: %d", h.Gate.UserBalance(userID))
	if i.GuildID != "" {
		msg += fmt.Sprintf("\n👥 This server's credits: %d", h.Gate.GroupBalance(i.GuildID))
	}
	respondText(s, i, msg, false)
}

func (h *Handler) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	fields := []*discordgo.MessageEmbedField{
		{
			Name:  "/figurine style:<name> image:<file>",
			Value: "Transform the attached image with a preset style. Add `prompt:` for extra description.",
		},
		{
			Name:  "/styles",
			Value: "List the available preset styles.",
		},
		{
			Name:  "/balance",
			Value: "Show your remaining credits (and this server's, in a server).",
		},
	}
	if h.Config.Economy.EnableCheckin {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  "/checkin",
			Value: "Claim your free daily credits.",
		})
	}

	footer := fmt.Sprintf("Each generation costs %d credit(s); a failed generation is refunded.", RequestCost)
	if !h.Config.Economy.EnableUserLimit && !h.Config.Economy.EnableGroupLimit {
		footer = "Generation is currently free - no credit limits are enabled."
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🖼️ Figurine Bot",
		Description: "Turn your images into figurines, chibis and more with AI.",
		Color:       0x5865F2,
		Fields:      fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: footer},
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}); err != nil {
		log.Printf("Failed to respond with help: %v", err)
	}
}

func (h *Handler) handleStyles(s *discordgo.Session, i *discordgo.InteractionCreate) {
	all := h.Presets.All()
	if len(all) == 0 {
		respondText(s, i, "⚠️ No preset styles are configured.", false)
		return
	}

	names := make([]string, 0, len(all))
	for _, p := range all {
		names = append(names, "`"+p.Name+"`")
	}

	embed := &discordgo.MessageEmbed{
		Title:       "🎨 Available Styles",
		Description: strings.Join(names, ", "),
		Color:       0x5865F2,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Use /figurine style:<name> with an attached image",
		},
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	}); err != nil {
		log.Printf("Failed to respond with styles: %v", err)
	}
}
