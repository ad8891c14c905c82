package koi

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/net/context"
)

// Responder is the subset of the platform session the engine sends responses
// through, *discordgo.Session satisfies it, tests substitute their own
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(interaction *discordgo.Interaction, newresp *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Responder = (*discordgo.Session)(nil)

// responseState tracks the single-response invariant of one invocation,
// it is shared between context copies and flipped under its own lock
type responseState struct {
	mu        sync.Mutex
	responded bool
	deferred  bool
	//deadline is the response window, extended by a deferral
	deadline time.Time
}

// Ctx is the context of one invocation, an immutable snapshot of the inbound
// request plus the mutable response state,
// it is created per invocation and must not be retained after dispatch completes
type Ctx struct {
	ctx  context.Context
	ses  Responder
	ic   *discordgo.InteractionCreate
	node *Command
	path []string
	opts Options
	resp *responseState

	state dispatchState
}

func (c *Ctx) Context() context.Context {
	return c.ctx
}

func (c *Ctx) WithContext(ctx context.Context) *Ctx {
	if ctx == nil {
		panic("nil context")
	}
	cc := new(Ctx)
	*cc = *c
	cc.ctx = ctx
	return cc
}

// Session returns the responder the invocation will be answered through
func (c *Ctx) Session() Responder {
	return c.ses
}

func (c *Ctx) Interaction() *discordgo.InteractionCreate {
	return c.ic
}

// Command returns the resolved node this invocation targets
func (c *Ctx) Command() *Command {
	return c.node
}

// Path returns the resolved node path, command, group and subcommand names
func (c *Ctx) Path() []string {
	return c.path
}

// Options returns the coerced option values of this invocation
func (c *Ctx) Options() Options {
	return c.opts
}

// User returns the invoking user regardless of guild or DM origin
func (c *Ctx) User() *discordgo.User {
	if c.ic.Member != nil && c.ic.Member.User != nil {
		return c.ic.Member.User
	}
	return c.ic.User
}

func (c *Ctx) GuildID() string {
	return c.ic.GuildID
}

// Responded reports whether an initial response or deferral has been sent
func (c *Ctx) Responded() bool {
	c.resp.mu.Lock()
	defer c.resp.mu.Unlock()
	return c.resp.responded || c.resp.deferred
}

// Deferred reports whether the invocation was acknowledged with a deferral
func (c *Ctx) Deferred() bool {
	c.resp.mu.Lock()
	defer c.resp.mu.Unlock()
	return c.resp.deferred
}

// Respond sends the single initial response for this invocation,
// after a deferral it edits the deferred acknowledgement instead,
// it fails with AlreadyRespondedError on a second call and with
// StaleInteractionError once the response window elapsed without deferral
func (c *Ctx) Respond(data *discordgo.InteractionResponseData) error {
	c.resp.mu.Lock()
	defer c.resp.mu.Unlock()
	if c.resp.responded {
		return AlreadyRespondedError{id: c.ic.ID}
	}
	if time.Now().After(c.resp.deadline) && !c.resp.deferred {
		return StaleInteractionError{id: c.ic.ID}
	}
	if c.resp.deferred {
		edit := &discordgo.WebhookEdit{}
		if data != nil {
			if data.Content != "" {
				edit.Content = &data.Content
			}
			if data.Embeds != nil {
				edit.Embeds = &data.Embeds
			}
			if data.Components != nil {
				edit.Components = &data.Components
			}
		}
		_, err := c.ses.InteractionResponseEdit(c.ic.Interaction, edit)
		if err != nil {
			return err
		}
		c.resp.responded = true
		return nil
	}
	err := c.ses.InteractionRespond(c.ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return err
	}
	c.resp.responded = true
	return nil
}

// Say is shorthand for responding with plain content
func (c *Ctx) Say(content string) error {
	return c.Respond(&discordgo.InteractionResponseData{Content: content})
}

// Defer sends the content-less deferred acknowledgement, extending the
// response window for a later Respond or Edit
func (c *Ctx) Defer() error {
	return c.deferWith(defaultDeferWindow)
}

func (c *Ctx) deferWith(window time.Duration) error {
	c.resp.mu.Lock()
	defer c.resp.mu.Unlock()
	if c.resp.responded || c.resp.deferred {
		return AlreadyRespondedError{id: c.ic.ID}
	}
	if time.Now().After(c.resp.deadline) {
		return StaleInteractionError{id: c.ic.ID}
	}
	err := c.ses.InteractionRespond(c.ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		return err
	}
	c.resp.deferred = true
	c.resp.deadline = time.Now().Add(window)
	return nil
}

// Edit rewrites the response after it has been sent or deferred
func (c *Ctx) Edit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	c.resp.mu.Lock()
	defer c.resp.mu.Unlock()
	if !c.resp.responded && !c.resp.deferred {
		return nil, errors.New("no response or deferral to edit")
	}
	if time.Now().After(c.resp.deadline) {
		return nil, StaleInteractionError{id: c.ic.ID}
	}
	return c.ses.InteractionResponseEdit(c.ic.Interaction, edit)
}

// Followup sends an additional message after the initial response
func (c *Ctx) Followup(params *discordgo.WebhookParams) (*discordgo.Message, error) {
	c.resp.mu.Lock()
	defer c.resp.mu.Unlock()
	if !c.resp.responded && !c.resp.deferred {
		return nil, errors.New("no response or deferral to follow up on")
	}
	return c.ses.FollowupMessageCreate(c.ic.Interaction, true, params)
}
