package koi

import (
	"regexp"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/require"
)

func rawOpt(name string, typ discordgo.ApplicationCommandOptionType, value interface{}) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: typ, Value: value}
}

func TestCoerceRequiredMissing(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionString, "needed", "needed").Required()).
		Handle(func(*Ctx) error { return nil })

	_, err := coerceOptions(cmd, nil, nil, "")
	var mo MissingOptionError
	r.ErrorAs(err, &mo)
}

func TestCoerceNumericBounds(t *testing.T) {
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionInteger, "level", "a level").Required().Bounds(10, 15)).
		Handle(func(*Ctx) error { return nil })

	cases := []struct {
		name    string
		value   float64
		want    int64
		wantErr *regexp.Regexp
	}{
		{name: "below min", value: 9, wantErr: regexp.MustCompile("below the declared minimum")},
		{name: "above max", value: 16, wantErr: regexp.MustCompile("above the declared maximum")},
		{name: "at min", value: 10, want: 10},
		{name: "at max", value: 15, want: 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)
			opts, err := coerceOptions(cmd,
				[]*discordgo.ApplicationCommandInteractionDataOption{
					rawOpt("level", discordgo.ApplicationCommandOptionInteger, tc.value),
				}, nil, "")
			if tc.wantErr != nil {
				var iv InvalidOptionValueError
				r.ErrorAs(err, &iv)
				r.Regexp(tc.wantErr, err.Error())
				return
			}
			r.NoError(err)
			r.Equal(tc.want, opts.Int("level"))
		})
	}
}

func TestCoerceTypeMismatch(t *testing.T) {
	cases := []struct {
		name    string
		typ     OptionType
		value   interface{}
		wantErr *regexp.Regexp
	}{
		{name: "string gets number", typ: OptionString, value: float64(1), wantErr: regexp.MustCompile("expected a string")},
		{name: "bool gets string", typ: OptionBoolean, value: "yes", wantErr: regexp.MustCompile("expected a boolean")},
		{name: "int gets fraction", typ: OptionInteger, value: 1.5, wantErr: regexp.MustCompile("got a fraction")},
		{name: "number gets string", typ: OptionNumber, value: "1.5", wantErr: regexp.MustCompile("expected a number")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := require.New(t)
			cmd := NewCommand("c", "c").
				Options(NewOption(tc.typ, "v", "value").Required()).
				Handle(func(*Ctx) error { return nil })
			_, err := coerceOptions(cmd,
				[]*discordgo.ApplicationCommandInteractionDataOption{
					rawOpt("v", cmd.options[0].typ.discordType(), tc.value),
				}, nil, "")
			var iv InvalidOptionValueError
			r.ErrorAs(err, &iv)
			r.Regexp(tc.wantErr, err.Error())
		})
	}
}

func TestCoerceChoiceValidation(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionString, "fruit", "a fruit").Required().
			Choices(Choice{Name: "Apple", Value: "apple"}, Choice{Name: "Pear", Value: "pear"})).
		Handle(func(*Ctx) error { return nil })

	opts, err := coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("fruit", discordgo.ApplicationCommandOptionString, "pear"),
		}, nil, "")
	r.NoError(err)
	r.Equal("pear", opts.String("fruit"))

	_, err = coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("fruit", discordgo.ApplicationCommandOptionString, "durian"),
		}, nil, "")
	var iv InvalidOptionValueError
	r.ErrorAs(err, &iv)
	r.Regexp("not one of the declared choices", err.Error())
}

func TestCoerceDefaultInjection(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionInteger, "count", "how many").Default(int64(3))).
		Handle(func(*Ctx) error { return nil })

	opts, err := coerceOptions(cmd, nil, nil, "")
	r.NoError(err)
	r.Equal(int64(3), opts.Int("count"))

	opts, err = coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("count", discordgo.ApplicationCommandOptionInteger, float64(7)),
		}, nil, "")
	r.NoError(err)
	r.Equal(int64(7), opts.Int("count"))
}

func TestCoerceOptionalAbsent(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionString, "note", "a note")).
		Handle(func(*Ctx) error { return nil })

	opts, err := coerceOptions(cmd, nil, nil, "")
	r.NoError(err)
	r.False(opts.Has("note"))
	r.Equal("", opts.String("note"))
}

func TestCoerceResolvedEntities(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(
			NewOption(OptionUser, "who", "a user").Required(),
			NewOption(OptionRole, "role", "a role").Required(),
			NewOption(OptionMentionable, "target", "user or role").Required(),
			NewOption(OptionAttachment, "file", "a file").Required(),
		).
		Handle(func(*Ctx) error { return nil })

	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Users:       map[string]*discordgo.User{"u1": {ID: "u1", Username: "someone"}},
		Roles:       map[string]*discordgo.Role{"r1": {ID: "r1", Name: "mods"}},
		Attachments: map[string]*discordgo.MessageAttachment{"a1": {ID: "a1", Filename: "cat.png"}},
	}
	opts, err := coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("who", discordgo.ApplicationCommandOptionUser, "u1"),
			rawOpt("role", discordgo.ApplicationCommandOptionRole, "r1"),
			rawOpt("target", discordgo.ApplicationCommandOptionMentionable, "r1"),
			rawOpt("file", discordgo.ApplicationCommandOptionAttachment, "a1"),
		}, resolved, "guild-1")
	r.NoError(err)
	r.Equal("someone", opts.User("who").Username)
	r.Equal("mods", opts.Role("role").Name)
	r.Equal("cat.png", opts.Attachment("file").Filename)

	role, ok := opts.Mentionable("target").AsRole()
	r.True(ok)
	r.Equal("mods", role.Name)
	_, ok = opts.Mentionable("target").AsUser()
	r.False(ok)
}

func TestCoerceChannelTypeFilter(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionChannel, "where", "a text channel").Required().
			ChannelTypes(discordgo.ChannelTypeGuildText)).
		Handle(func(*Ctx) error { return nil })

	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Channels: map[string]*discordgo.Channel{
			"text":  {ID: "text", Type: discordgo.ChannelTypeGuildText},
			"voice": {ID: "voice", Type: discordgo.ChannelTypeGuildVoice},
		},
	}
	opts, err := coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("where", discordgo.ApplicationCommandOptionChannel, "text"),
		}, resolved, "")
	r.NoError(err)
	r.Equal("text", opts.Channel("where").ID)

	_, err = coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("where", discordgo.ApplicationCommandOptionChannel, "voice"),
		}, resolved, "")
	var iv InvalidOptionValueError
	r.ErrorAs(err, &iv)
	r.Regexp("not of an allowed type", err.Error())
}

func TestCoerceUndeclaredOptionRejected(t *testing.T) {
	r := require.New(t)
	cmd := NewCommand("c", "c").
		Options(NewOption(OptionString, "known", "known")).
		Handle(func(*Ctx) error { return nil })

	_, err := coerceOptions(cmd,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			rawOpt("mystery", discordgo.ApplicationCommandOptionString, "x"),
		}, nil, "")
	var iv InvalidOptionValueError
	r.ErrorAs(err, &iv)
	r.Regexp("not declared in the schema", err.Error())
}
