package plugin

import (
	"io"
	"log/slog"
	"net/http"
)

// testApp implements App for testing.
type testApp struct {
	desc     *Descriptor
	modules  map[string]SettingsFunc
	urlsErr  error
	urlCalls int
}

func (a *testApp) Descriptor() *Descriptor                  { return a.desc }
func (a *testApp) SettingsModules() map[string]SettingsFunc { return a.modules }

func (a *testApp) URLs(s *Settings) (http.Handler, error) {
	a.urlCalls++
	if a.urlsErr != nil {
		return nil, a.urlsErr
	}
	name := a.desc.Name()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-App", name)
		_, _ = io.WriteString(w, r.URL.Path)
	})
	return mux, nil
}

// bothTiers declares settings.common and settings.aws for the given variants.
func bothTiers(pts ...ProjectType) map[ProjectType]map[SettingsType]SettingsConfig {
	out := make(map[ProjectType]map[SettingsType]SettingsConfig)
	for _, pt := range pts {
		out[pt] = map[SettingsType]SettingsConfig{
			SettingsTypeCommon: {RelativePath: "settings.common"},
			SettingsTypeAWS:    {RelativePath: "settings.aws"},
		}
	}
	return out
}

// newTestApp builds an app mounted at regex for LMS and CMS whose settings
// modules record their application in s under "<name>.<tier>".
func newTestApp(name, regex, namespace string) *testApp {
	urls := map[ProjectType]URLConfig{
		ProjectTypeLMS: {Namespace: namespace, Regex: regex},
		ProjectTypeCMS: {Namespace: namespace, Regex: regex},
	}
	return &testApp{
		desc: MustDescriptor(DescriptorConfig{
			Name:     name,
			URLs:     urls,
			Settings: bothTiers(ProjectTypeLMS, ProjectTypeCMS),
		}),
		modules: map[string]SettingsFunc{
			"settings.common": func(s *Settings) { s.Set(name+".tier", "common") },
			"settings.aws":    func(s *Settings) { s.Set(name+".tier", "aws") },
		},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
