package koi

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// OptionType is the declared type tag of an Option, it selects the coercion
// function applied to the raw wire value before the handler sees it
type OptionType uint8

const (
	OptionInvalid OptionType = iota
	OptionString
	OptionInteger
	OptionNumber
	OptionBoolean
	OptionUser
	OptionChannel
	OptionRole
	OptionMentionable
	OptionAttachment
)

func (t OptionType) String() string {
	switch t {
	case OptionString:
		return "String"
	case OptionInteger:
		return "Integer"
	case OptionNumber:
		return "Number"
	case OptionBoolean:
		return "Boolean"
	case OptionUser:
		return "User"
	case OptionChannel:
		return "Channel"
	case OptionRole:
		return "Role"
	case OptionMentionable:
		return "Mentionable"
	case OptionAttachment:
		return "Attachment"
	default:
		return fmt.Sprintf("OptionType(%d)", uint8(t))
	}
}

func (t OptionType) discordType() discordgo.ApplicationCommandOptionType {
	switch t {
	case OptionString:
		return discordgo.ApplicationCommandOptionString
	case OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case OptionNumber:
		return discordgo.ApplicationCommandOptionNumber
	case OptionBoolean:
		return discordgo.ApplicationCommandOptionBoolean
	case OptionUser:
		return discordgo.ApplicationCommandOptionUser
	case OptionChannel:
		return discordgo.ApplicationCommandOptionChannel
	case OptionRole:
		return discordgo.ApplicationCommandOptionRole
	case OptionMentionable:
		return discordgo.ApplicationCommandOptionMentionable
	case OptionAttachment:
		return discordgo.ApplicationCommandOptionAttachment
	default:
		return 0
	}
}

func (t OptionType) numeric() bool {
	return t == OptionInteger || t == OptionNumber
}

// maxChoices is the most choices a single option may declare
const maxChoices = 25

// Choice is a single enumerated name/value pair offered for an option
type Choice struct {
	Name  string
	Value interface{}
}

// AutocompleteFunc produces candidate choices for a partially typed option value,
// it must return within the engine's autocomplete budget or be abandoned
type AutocompleteFunc func(ctx *AutocompleteCtx) ([]Choice, error)

// Option describes one parameter of a command,
// build it with NewOption and the chainable setters, it must not be
// mutated after the owning command is registered
type Option struct {
	typ          OptionType
	name         string
	description  string
	required     bool
	def          interface{}
	choices      []Choice
	minValue     *float64
	maxValue     *float64
	channelTypes []discordgo.ChannelType
	autocomplete AutocompleteFunc
}

// NewOption creates an option of the given type,
// names are forced to lowercase as the platform requires
func NewOption(typ OptionType, name string, description string) *Option {
	return &Option{
		typ:         typ,
		name:        strings.ToLower(name),
		description: description,
	}
}

// Required marks the option as mandatory,
// required options must be declared before optional ones
func (o *Option) Required() *Option {
	o.required = true
	return o
}

// Default sets the value injected when an optional option is absent from the invocation
func (o *Option) Default(v interface{}) *Option {
	o.def = v
	return o
}

// Choices declares the enumerated values accepted for this option
func (o *Option) Choices(choices ...Choice) *Option {
	o.choices = append(o.choices, choices...)
	return o
}

// Bounds constrains a numeric option to the inclusive [min, max] range
func (o *Option) Bounds(min, max float64) *Option {
	o.minValue = &min
	o.maxValue = &max
	return o
}

// Min constrains a numeric option to values >= min
func (o *Option) Min(min float64) *Option {
	o.minValue = &min
	return o
}

// Max constrains a numeric option to values <= max
func (o *Option) Max(max float64) *Option {
	o.maxValue = &max
	return o
}

// ChannelTypes restricts a channel option to the given channel kinds
func (o *Option) ChannelTypes(types ...discordgo.ChannelType) *Option {
	o.channelTypes = append(o.channelTypes, types...)
	return o
}

// Autocomplete attaches a candidate callback fired while the user is typing this option
func (o *Option) Autocomplete(fn AutocompleteFunc) *Option {
	o.autocomplete = fn
	return o
}

func (o *Option) Name() string {
	return o.name
}

func (o *Option) Type() OptionType {
	return o.typ
}

func (o *Option) IsRequired() bool {
	return o.required
}

func (o *Option) HasAutocomplete() bool {
	return o.autocomplete != nil
}

// validate enforces the schema rules that do not depend on sibling options
func (o *Option) validate() error {
	if o.name == "" {
		return fmt.Errorf("option has no name")
	}
	if o.typ == OptionInvalid || o.typ.discordType() == 0 {
		return fmt.Errorf(`option "%s" has invalid type %s`, o.name, o.typ)
	}
	if o.description == "" {
		return fmt.Errorf(`option "%s" has no description`, o.name)
	}
	if len(o.choices) > maxChoices {
		return fmt.Errorf(`option "%s" declares %d choices, the maximum is %d`, o.name, len(o.choices), maxChoices)
	}
	if len(o.choices) > 0 && o.autocomplete != nil {
		return fmt.Errorf(`option "%s" declares both choices and autocomplete`, o.name)
	}
	if (o.minValue != nil || o.maxValue != nil) && !o.typ.numeric() {
		return fmt.Errorf(`option "%s" declares numeric bounds but is of type %s`, o.name, o.typ)
	}
	if o.minValue != nil && o.maxValue != nil && *o.minValue > *o.maxValue {
		return fmt.Errorf(`option "%s" declares min %v greater than max %v`, o.name, *o.minValue, *o.maxValue)
	}
	if len(o.channelTypes) > 0 && o.typ != OptionChannel {
		return fmt.Errorf(`option "%s" declares channel types but is of type %s`, o.name, o.typ)
	}
	if o.required && o.def != nil {
		return fmt.Errorf(`option "%s" is required and cannot carry a default`, o.name)
	}
	if o.def != nil {
		if err := o.validateDefault(); err != nil {
			return err
		}
	}
	return nil
}

// validateDefault enforces that a declared default already has the type the
// coercion stage would produce, it is injected verbatim when the option is absent
func (o *Option) validateDefault() error {
	var want string
	var ok bool
	switch o.typ {
	case OptionString:
		_, ok = o.def.(string)
		want = "string"
	case OptionInteger:
		_, ok = o.def.(int64)
		want = "int64"
	case OptionNumber:
		_, ok = o.def.(float64)
		want = "float64"
	case OptionBoolean:
		_, ok = o.def.(bool)
		want = "bool"
	default:
		return fmt.Errorf(`option "%s" of type %s cannot carry a default`, o.name, o.typ)
	}
	if !ok {
		return fmt.Errorf(`option "%s" declares a %T default, type %s injects %s`, o.name, o.def, o.typ, want)
	}
	return nil
}

// applicationCommandOption exports the schema verbatim for the platform's command-sync mechanism
func (o *Option) applicationCommandOption() *discordgo.ApplicationCommandOption {
	a := &discordgo.ApplicationCommandOption{
		Type:         o.typ.discordType(),
		Name:         o.name,
		Description:  o.description,
		Required:     o.required,
		ChannelTypes: o.channelTypes,
		Autocomplete: o.autocomplete != nil,
		MinValue:     o.minValue,
	}
	if o.maxValue != nil {
		a.MaxValue = *o.maxValue
	}
	for _, c := range o.choices {
		a.Choices = append(a.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  c.Name,
			Value: c.Value,
		})
	}
	return a
}
