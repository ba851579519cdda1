package core

var (
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ OptionsResolver = GoOptionsResolver{}
	_ RawConfigLoader = staticRawConfigLoader{}
	_ MetricsRecorder = NopMetricsRecorder{}
)
