package gallery

import "strings"

// Nav identifies the navigation entry selected in the sidebar.
type Nav string

const (
	NavHome      Nav = "home"
	NavFavorites Nav = "favorites"
	NavSettings  Nav = "settings"
)

// NavItem is one entry of the navigation shell.
type NavItem struct {
	ID    Nav
	Label string
	Icon  string
}

// NavItems lists the sidebar entries in display order.
var NavItems = []NavItem{
	{ID: NavHome, Label: "Home", Icon: "🏠"},
	{ID: NavFavorites, Label: "Favorites", Icon: "❤️"},
	{ID: NavSettings, Label: "Settings", Icon: "⚙️"},
}

// ParseNav maps a raw query value to a Nav, defaulting to NavHome.
func ParseNav(raw string) Nav {
	switch Nav(strings.ToLower(strings.TrimSpace(raw))) {
	case NavFavorites:
		return NavFavorites
	case NavSettings:
		return NavSettings
	default:
		return NavHome
	}
}

// EmptyState tells the view why there is nothing to show.
type EmptyState int

const (
	EmptyNone EmptyState = iota
	// EmptyNoImages means the (navigation filtered) collection itself is empty.
	EmptyNoImages
	// EmptyNoResults means an active search matched nothing.
	EmptyNoResults
)

// GalleryView is the final sequence the gallery renders.
type GalleryView struct {
	Nav    Nav
	Query  string
	Images []ImageRecord
	Empty  EmptyState
}

// Compose applies the navigation filter first and then narrows the result by query.
func Compose(images []ImageRecord, nav Nav, query string) GalleryView {
	filtered := images
	if nav == NavFavorites {
		filtered = FilterFavorites(filtered)
	}

	searching := strings.TrimSpace(query) != ""
	if searching {
		filtered = Search(filtered, query)
	}

	view := GalleryView{Nav: nav, Query: query, Images: filtered}
	if len(filtered) == 0 {
		if searching {
			view.Empty = EmptyNoResults
		} else {
			view.Empty = EmptyNoImages
		}
	}
	return view
}
