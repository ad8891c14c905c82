package koi

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/net/context"
)

// AutocompleteCtx is the context of one keystroke-driven autocomplete probe,
// it carries the partial value of the focused option and is discarded after
// the candidate list is returned
type AutocompleteCtx struct {
	ctx    context.Context
	ic     *discordgo.InteractionCreate
	node   *Command
	option *Option
	//partial is the raw value typed so far, a string for every focused
	//option type since the user has not committed the value yet
	partial string
}

func (a *AutocompleteCtx) Context() context.Context {
	return a.ctx
}

func (a *AutocompleteCtx) Interaction() *discordgo.InteractionCreate {
	return a.ic
}

func (a *AutocompleteCtx) Command() *Command {
	return a.node
}

func (a *AutocompleteCtx) Option() *Option {
	return a.option
}

// Partial returns the value typed so far for the focused option
func (a *AutocompleteCtx) Partial() string {
	return a.partial
}

// User returns the invoking user
func (a *AutocompleteCtx) User() *discordgo.User {
	if a.ic.Member != nil && a.ic.Member.User != nil {
		return a.ic.Member.User
	}
	return a.ic.User
}

// resolveAutocomplete locates the focused option on the node, runs its
// callback under the engine's budget and returns at most maxChoices
// candidates,
// the callback is abandoned, not retried, when the budget elapses
func (d *Koi) resolveAutocomplete(ctx *AutocompleteCtx) ([]Choice, error) {
	if ctx.option == nil || ctx.option.autocomplete == nil {
		name := ""
		if ctx.option != nil {
			name = ctx.option.name
		}
		return nil, UnknownOptionError{command: ctx.node.name, option: name}
	}

	budget, cancel := context.WithTimeout(ctx.ctx, d.acBudget)
	defer cancel()
	ctx = &AutocompleteCtx{ctx: budget, ic: ctx.ic, node: ctx.node, option: ctx.option, partial: ctx.partial}

	type result struct {
		choices []Choice
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("autocomplete panicked: %v", r)}
			}
		}()
		choices, err := ctx.option.autocomplete(ctx)
		done <- result{choices: choices, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		if len(res.choices) > maxChoices {
			res.choices = res.choices[:maxChoices]
		}
		return res.choices, nil
	case <-budget.Done():
		return nil, TimeoutError{stage: "autocomplete", budget: d.acBudget}
	}
}

// processAutocomplete handles one autocomplete probe end to end: resolve the
// node, find the focused option, run the callback and send the candidates
func (d *Koi) processAutocomplete(ctx context.Context, ses Responder, ic *discordgo.InteractionCreate) error {
	data := ic.ApplicationCommandData()
	path, leaf := walkPath(&data)
	node, err := d.registry.Resolve(ic.GuildID, path)
	if err != nil {
		return err
	}

	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range leaf {
		if opt.Focused {
			focused = opt
			break
		}
	}
	if focused == nil {
		return UnknownOptionError{command: node.name}
	}

	option := node.option(focused.Name)
	if option == nil || option.autocomplete == nil {
		return UnknownOptionError{command: node.name, option: focused.Name}
	}

	partial, _ := focused.Value.(string)
	actx := &AutocompleteCtx{
		ctx:     ctx,
		ic:      ic,
		node:    node,
		option:  option,
		partial: partial,
	}
	choices, err := d.resolveAutocomplete(actx)
	if err != nil {
		d.log.Error().Err(err).Str("command", errPath(path)).Str("option", focused.Name).
			Msg("autocomplete failed")
		return err
	}

	out := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(choices))
	for _, c := range choices {
		out = append(out, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value})
	}
	return ses.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: out},
	})
}
