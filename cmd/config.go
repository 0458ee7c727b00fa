package cmd

import (
	"github.com/spf13/pflag"
	null "gopkg.in/guregu/null.v3"

	"kitsunedns/config"
)

func getNullBool(flags *pflag.FlagSet, key string) null.Bool {
	v, err := flags.GetBool(key)
	if err != nil {
		panic(err)
	}
	return null.NewBool(v, flags.Changed(key))
}

func getNullInt64(flags *pflag.FlagSet, key string) null.Int {
	v, err := flags.GetInt64(key)
	if err != nil {
		panic(err)
	}
	return null.NewInt(v, flags.Changed(key))
}

func getNullString(flags *pflag.FlagSet, key string) null.String {
	v, err := flags.GetString(key)
	if err != nil {
		panic(err)
	}
	return null.NewString(v, flags.Changed(key))
}

func serveConfigFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.Int64P("port", "p", 0, "UDP port to listen for DNS queries on")
	flags.String("root-server", "", "nameserver every resolution starts from")
	flags.Bool("web", true, "serve the web dashboard")
	flags.Int64("web-port", 8080, "web dashboard port")
	return flags
}

// getServeConfig turns serve's flags into a config layer, marking only the
// flags the user actually set.
func getServeConfig(flags *pflag.FlagSet) config.Config {
	return config.Config{
		Port:       getNullInt64(flags, "port"),
		RootServer: getNullString(flags, "root-server"),
		WebEnabled: getNullBool(flags, "web"),
		WebPort:    getNullInt64(flags, "web-port"),
	}
}
