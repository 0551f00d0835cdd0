package assist

import "fmt"

// ProviderFactory creates a provider instance.
type ProviderFactory func() (Provider, error)

var providers = make(map[string]ProviderFactory)

// RegisterProvider registers a factory under a provider name. Backends call
// this from init so importing the package is enough to enable them.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewProvider instantiates the named provider.
func NewProvider(name string) (Provider, error) {
	factory, exists := providers[name]
	if !exists {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return factory()
}
