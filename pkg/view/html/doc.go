// Package html renders a grid screen as an HTML fragment using pongo2
// templates. Presentation selects the chrome around the form (overlay dialog,
// slide-over panel or full page) and list mode selects table rows or cards;
// the form and row content are shared by every variant.
package html
