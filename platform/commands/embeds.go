package commands

import (
	"github.com/fuad-daoud/warden/platform"
)

const (
	colorGold   = 0xf1c40f
	colorOrange = 0xe67e22
	colorRed    = 0xe74c3c
	colorYellow = 0xfee75c
	colorGreen  = 0x2ecc71
	colorBlue   = 0x3498db
	colorPurple = 0x9b59b6
)

const dateLayout = "2006-01-02"

func newEmbed(title, description string, color int, fields ...platform.EmbedField) platform.Embed {
	return platform.Embed{Title: title, Description: description, Color: color, Fields: fields}
}

func field(name, value string) platform.EmbedField {
	return platform.EmbedField{Name: name, Value: value, Inline: true}
}

func wideField(name, value string) platform.EmbedField {
	return platform.EmbedField{Name: name, Value: value}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
