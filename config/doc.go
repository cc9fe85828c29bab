// Package config loads relay settings and turns them into an
// httpclient.Config.
//
// Sources are layered with Viper, highest priority first: command-line
// flags, RELAY_* environment variables (a .env file is loaded into the
// environment first), then a YAML config file.
//
//	var s config.Settings
//	if err := config.LoadConfig("relay", &s, config.WithFlags(fs, flagKeys)); err != nil {
//	    return err
//	}
//	s.ApplyDefaults()
//	if err := s.Validate(); err != nil {
//	    return err
//	}
//	client := httpclient.New(s.Client.ClientConfig(), httpclient.WithTransport(t))
//
// Every settings key has an environment variable named after it:
// RELAY_CLIENT_BASE_URL sets client.base_url.
package config
