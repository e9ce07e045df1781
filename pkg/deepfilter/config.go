package deepfilter

const (
	DefaultChannels           = 1
	DefaultAttenuationLimitDB = float32(33.0)
)

type Config struct {
	Channels           int
	AttenuationLimitDB float32

	// PostFilterBeta is applied right after the state is created if set.
	PostFilterBeta *float32
}

func DefaultConfig() Config {
	return Config{
		Channels:           DefaultChannels,
		AttenuationLimitDB: DefaultAttenuationLimitDB,
	}
}

type Option interface {
	apply(*Config)
}

type Options []Option

func (s Options) Config() Config {
	cfg := DefaultConfig()
	for _, opt := range s {
		opt.apply(&cfg)
	}
	return cfg
}

type OptionChannels int

func (opt OptionChannels) apply(cfg *Config) {
	cfg.Channels = int(opt)
}

// OptionAttenuationLimit is the maximal suppression in dB.
type OptionAttenuationLimit float32

func (opt OptionAttenuationLimit) apply(cfg *Config) {
	cfg.AttenuationLimitDB = float32(opt)
}

type OptionPostFilterBeta float32

func (opt OptionPostFilterBeta) apply(cfg *Config) {
	beta := float32(opt)
	cfg.PostFilterBeta = &beta
}
