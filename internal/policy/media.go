package policy

// NewSocialPreset covers the usual social networks.
func NewSocialPreset() Preset {
	return NewPreset("social", "Social networks",
		[]string{"discord", "whatsapp", "telegram"},
		[]string{
			"facebook.com",
			"instagram.com",
			"tiktok.com",
			"snapchat.com",
			"x.com",
			"twitter.com",
			"discord.com",
		})
}

// NewStreamingPreset covers video and live streaming.
func NewStreamingPreset() Preset {
	return NewPreset("streaming", "Video streaming",
		nil,
		[]string{
			"youtube.com",
			"twitch.tv",
			"netflix.com",
			"disneyplus.com",
		})
}
