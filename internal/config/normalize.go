package config

import "strings"

// normalize expands paths and canonicalizes enumerated string fields so the
// rest of the program never needs to re-interpret raw file values.
func (c *Config) normalize() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return err
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	if c.Pacing.ProxyFile != "" {
		if c.Pacing.ProxyFile, err = expandPath(c.Pacing.ProxyFile); err != nil {
			return err
		}
	}
	if c.Download.CookiesFile != "" {
		if c.Download.CookiesFile, err = expandPath(c.Download.CookiesFile); err != nil {
			return err
		}
	}

	c.Download.Quality = strings.ToLower(strings.TrimSpace(c.Download.Quality))
	c.Download.MediaKind = strings.ToLower(strings.TrimSpace(c.Download.MediaKind))
	c.Download.Container = strings.ToLower(strings.TrimSpace(c.Download.Container))
	c.Download.Order = strings.ToLower(strings.TrimSpace(c.Download.Order))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	c.Pacing.Proxies = trimProxies(c.Pacing.Proxies)
	c.Notifications.SlackWebhookURL = strings.TrimSpace(c.Notifications.SlackWebhookURL)

	return nil
}

func trimProxies(proxies []string) []string {
	out := make([]string, 0, len(proxies))
	for _, proxy := range proxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}
		out = append(out, proxy)
	}
	return out
}
