package koi

import (
	"math"

	"github.com/bwmarrin/discordgo"
)

// Mentionable is an instance of something that could be a Role or a User
type Mentionable struct {
	Value interface{}
}

func (m *Mentionable) AsUser() (*discordgo.User, bool) {
	u, ok := m.Value.(*discordgo.User)
	return u, ok
}

func (m *Mentionable) AsRole() (*discordgo.Role, bool) {
	r, ok := m.Value.(*discordgo.Role)
	return r, ok
}

// Options holds the coerced option values of one invocation keyed by option name,
// values are already validated against the schema when the handler sees them
type Options map[string]interface{}

func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

func (o Options) String(name string) string {
	v, _ := o[name].(string)
	return v
}

func (o Options) Int(name string) int64 {
	v, _ := o[name].(int64)
	return v
}

func (o Options) Float(name string) float64 {
	v, _ := o[name].(float64)
	return v
}

func (o Options) Bool(name string) bool {
	v, _ := o[name].(bool)
	return v
}

func (o Options) User(name string) *discordgo.User {
	v, _ := o[name].(*discordgo.User)
	return v
}

func (o Options) Channel(name string) *discordgo.Channel {
	v, _ := o[name].(*discordgo.Channel)
	return v
}

func (o Options) Role(name string) *discordgo.Role {
	v, _ := o[name].(*discordgo.Role)
	return v
}

func (o Options) Mentionable(name string) *Mentionable {
	v, _ := o[name].(*Mentionable)
	return v
}

func (o Options) Attachment(name string) *discordgo.MessageAttachment {
	v, _ := o[name].(*discordgo.MessageAttachment)
	return v
}

// coerceOptions converts the raw wire values of an invocation into typed
// handler arguments keyed by the schema's declared type tags,
// it validates required presence, choices and numeric bounds and injects
// declared defaults for absent optional options
func coerceOptions(node *Command, raw []*discordgo.ApplicationCommandInteractionDataOption,
	resolved *discordgo.ApplicationCommandInteractionDataResolved, guildID string) (Options, error) {
	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(raw))
	for _, opt := range raw {
		byName[opt.Name] = opt
	}
	out := make(Options, len(node.options))
	for _, schema := range node.options {
		opt, ok := byName[schema.name]
		if !ok {
			if schema.required {
				return nil, MissingOptionError{command: node.name, option: schema.name}
			}
			if schema.def != nil {
				out[schema.name] = schema.def
			}
			continue
		}
		delete(byName, schema.name)
		v, err := coerceValue(node, schema, opt.Value, resolved, guildID)
		if err != nil {
			return nil, err
		}
		out[schema.name] = v
	}
	for name := range byName {
		return nil, InvalidOptionValueError{command: node.name, option: name,
			value: byName[name].Value, reason: "option is not declared in the schema"}
	}
	return out, nil
}

func coerceValue(node *Command, schema *Option, raw interface{},
	resolved *discordgo.ApplicationCommandInteractionDataResolved, guildID string) (interface{}, error) {
	fail := func(reason string) (interface{}, error) {
		return nil, InvalidOptionValueError{command: node.name, option: schema.name, value: raw, reason: reason}
	}
	switch schema.typ {
	case OptionString:
		s, ok := raw.(string)
		if !ok {
			return fail("expected a string")
		}
		if err := validateChoice(schema, s); err != nil {
			return nil, invalidChoice(node, schema, raw)
		}
		return s, nil
	case OptionInteger:
		//the wire encodes every number as a float
		f, ok := raw.(float64)
		if !ok {
			return fail("expected an integer")
		}
		if f != math.Trunc(f) {
			return fail("expected an integer, got a fraction")
		}
		if err := validateBounds(schema, f); err != nil {
			return nil, InvalidOptionValueError{command: node.name, option: schema.name, value: raw, reason: err.Error()}
		}
		if len(schema.choices) > 0 && !numericChoiceAllowed(schema, f) {
			return nil, invalidChoice(node, schema, raw)
		}
		return int64(f), nil
	case OptionNumber:
		f, ok := raw.(float64)
		if !ok {
			return fail("expected a number")
		}
		if err := validateBounds(schema, f); err != nil {
			return nil, InvalidOptionValueError{command: node.name, option: schema.name, value: raw, reason: err.Error()}
		}
		if len(schema.choices) > 0 && !numericChoiceAllowed(schema, f) {
			return nil, invalidChoice(node, schema, raw)
		}
		return f, nil
	case OptionBoolean:
		b, ok := raw.(bool)
		if !ok {
			return fail("expected a boolean")
		}
		return b, nil
	case OptionUser:
		id, ok := raw.(string)
		if !ok {
			return fail("expected a user id")
		}
		if resolved != nil {
			if u, ok := resolved.Users[id]; ok {
				return u, nil
			}
		}
		return &discordgo.User{ID: id}, nil
	case OptionChannel:
		id, ok := raw.(string)
		if !ok {
			return fail("expected a channel id")
		}
		var ch *discordgo.Channel
		if resolved != nil {
			ch = resolved.Channels[id]
		}
		if ch == nil {
			ch = &discordgo.Channel{ID: id}
		}
		if len(schema.channelTypes) > 0 && !channelTypeAllowed(schema, ch.Type) {
			return fail("channel is not of an allowed type")
		}
		return ch, nil
	case OptionRole:
		id, ok := raw.(string)
		if !ok {
			return fail("expected a role id")
		}
		if resolved != nil {
			if r, ok := resolved.Roles[id]; ok {
				return r, nil
			}
		}
		return &discordgo.Role{ID: id}, nil
	case OptionMentionable:
		id, ok := raw.(string)
		if !ok {
			return fail("expected a user or role id")
		}
		men := &Mentionable{}
		if resolved != nil {
			if u, ok := resolved.Users[id]; ok {
				men.Value = u
			} else if r, ok := resolved.Roles[id]; ok {
				men.Value = r
			}
		}
		if men.Value == nil {
			return fail("id resolves to neither a user nor a role")
		}
		return men, nil
	case OptionAttachment:
		id, ok := raw.(string)
		if !ok {
			return fail("expected an attachment id")
		}
		if resolved != nil {
			if a, ok := resolved.Attachments[id]; ok {
				return a, nil
			}
		}
		return fail("attachment is missing from the resolved data")
	default:
		return fail("option has an unrecognized type tag")
	}
}

func validateBounds(schema *Option, v float64) error {
	if schema.minValue != nil && v < *schema.minValue {
		return boundError{reason: "value is below the declared minimum"}
	}
	if schema.maxValue != nil && v > *schema.maxValue {
		return boundError{reason: "value is above the declared maximum"}
	}
	return nil
}

type boundError struct{ reason string }

func (e boundError) Error() string { return e.reason }

func validateChoice(schema *Option, s string) error {
	if len(schema.choices) == 0 {
		return nil
	}
	for _, c := range schema.choices {
		if cs, ok := c.Value.(string); ok && cs == s {
			return nil
		}
	}
	return boundError{reason: "value is not one of the declared choices"}
}

func numericChoiceAllowed(schema *Option, v float64) bool {
	for _, c := range schema.choices {
		switch cv := c.Value.(type) {
		case int:
			if float64(cv) == v {
				return true
			}
		case int64:
			if float64(cv) == v {
				return true
			}
		case float64:
			if cv == v {
				return true
			}
		}
	}
	return false
}

func channelTypeAllowed(schema *Option, t discordgo.ChannelType) bool {
	for _, allowed := range schema.channelTypes {
		if allowed == t {
			return true
		}
	}
	return false
}

func invalidChoice(node *Command, schema *Option, raw interface{}) error {
	return InvalidOptionValueError{command: node.name, option: schema.name,
		value: raw, reason: "value is not one of the declared choices"}
}
