// Package catalog provides the static subject and tool catalogs.
//
// Both catalogs are read-only configuration supplied to the rest of the
// application: the session controller treats them as immutable data and
// never mutates them. Identity is the lowercase ID, which doubles as the
// backend API route segment for subjects and as the dispatch key for tools.
package catalog

// Subject identifies a tutoring domain. ID is the stable key and is also
// used as the API route segment (POST /api/{ID}).
type Subject struct {
	ID    string
	Name  string
	Icon  string
	Color string
}

// Tool is an optional augmentation strategy that enriches a user query
// with external context before tutoring.
type Tool struct {
	ID          string
	Name        string
	Description string
}

// Tool IDs with client-side augmentation pipelines.
const (
	ToolResearcher = "researcher"
	ToolMessenger  = "messenger"
)

// subjects is the full catalog shipped with the application.
var subjects = []Subject{
	{ID: "mathematics", Name: "Mathematics", Icon: "📐", Color: "#6366f1"},
	{ID: "english", Name: "English", Icon: "📚", Color: "#8b5cf6"},
	{ID: "geography", Name: "Geography", Icon: "🌍", Color: "#10b981"},
	{ID: "literature", Name: "Literature", Icon: "📖", Color: "#ec4899"},
	{ID: "physics", Name: "Physics", Icon: "⚛️", Color: "#3b82f6"},
	{ID: "economics", Name: "Economics", Icon: "💼", Color: "#f59e0b"},
	{ID: "chemistry", Name: "Chemistry", Icon: "🧪", Color: "#8b5cf6"},
	{ID: "biology", Name: "Biology", Icon: "🧬", Color: "#10b981"},
	{ID: "history", Name: "History", Icon: "🏛️", Color: "#64748b"},
	{ID: "french", Name: "French", Icon: "🇫🇷", Color: "#6366f1"},
	{ID: "religious", Name: "Religious Studies", Icon: "✝️", Color: "#a855f7"},
}

var tools = []Tool{
	{ID: ToolResearcher, Name: "Researcher", Description: "Live web research"},
	{ID: "analytics", Name: "Analytics", Description: "Math visualizations"},
	{ID: ToolMessenger, Name: "Messenger", Description: "GCE announcements"},
}

// Subjects returns a copy of the subject catalog.
func Subjects() []Subject {
	out := make([]Subject, len(subjects))
	copy(out, subjects)
	return out
}

// SubjectByID looks up a subject by its ID.
func SubjectByID(id string) (Subject, bool) {
	for _, s := range subjects {
		if s.ID == id {
			return s, true
		}
	}
	return Subject{}, false
}

// Tools returns a copy of the tool catalog.
func Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// ToolByID looks up a tool by its ID.
func ToolByID(id string) (Tool, bool) {
	for _, t := range tools {
		if t.ID == id {
			return t, true
		}
	}
	return Tool{}, false
}
