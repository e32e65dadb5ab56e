package schema

// WindowID identifies a browsing window (a session with its own tab strip).
type WindowID string

// MainWindowID is the identifier of the persistent window created at startup.
const MainWindowID WindowID = "main"

// TabID identifies a tab for the lifetime of the process.
type TabID string

// DownloadID is the host-assigned identifier of a download.
type DownloadID string

// SearchEngine names a search provider used for non-URL address bar input.
type SearchEngine string

const (
	// SearchEngineAyen is the default search provider.
	SearchEngineAyen SearchEngine = "Ayen"
	// SearchEngineGoogle searches with Google.
	SearchEngineGoogle SearchEngine = "Google"
	// SearchEngineDuckDuckGo searches with DuckDuckGo.
	SearchEngineDuckDuckGo SearchEngine = "DuckDuckGo"
)

const (
	// DefaultTabURL is loaded by new tabs in persistent windows.
	DefaultTabURL = "https://ayen.in"
	// DefaultIncognitoTabURL is loaded by new tabs in incognito windows.
	DefaultIncognitoTabURL = "https://duckduckgo.com"
	// PlaceholderTitle is shown until the render surface reports a title.
	PlaceholderTitle = "New Tab"
	// InitialTabTitle is the title of the tab a window starts with.
	InitialTabTitle = "Ayen"
)

// HistoryItem is a single visited page.
type HistoryItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Date  string `json:"date"`
}

// BookmarkItem is a saved page, unique by URL.
type BookmarkItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Settings are the user-tunable browser preferences.
type Settings struct {
	SearchEngine  SearchEngine `json:"searchEngine"`
	ShieldEnabled bool         `json:"shieldEnabled"`
}

// DefaultSettings returns the settings used when nothing is stored yet.
func DefaultSettings() Settings {
	return Settings{
		SearchEngine:  SearchEngineAyen,
		ShieldEnabled: true,
	}
}

// SettingKey names an individually updatable setting.
type SettingKey string

const (
	// SettingSearchEngine selects the search provider.
	SettingSearchEngine SettingKey = "searchEngine"
	// SettingShieldEnabled toggles ad and tracker blocking.
	SettingShieldEnabled SettingKey = "shieldEnabled"
)
