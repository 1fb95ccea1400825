// Package prompts holds the prompt templates used by the router, the
// decomposer, the graph entity extractor and the answer synthesizer.
package prompts

// Library groups every prompt family.
type Library interface {
	Route() RoutePrompt
	Decompose() DecomposePrompt
	Entities() EntitiesPrompt
	Answer() AnswerPrompt
}

// LibraryImpl is the default Library.
type LibraryImpl struct {
	route     *RouteVersions
	decompose *DecomposeVersions
	entities  *EntitiesVersions
	answer    *AnswerVersions
}

func (l *LibraryImpl) Route() RoutePrompt         { return l.route }
func (l *LibraryImpl) Decompose() DecomposePrompt { return l.decompose }
func (l *LibraryImpl) Entities() EntitiesPrompt   { return l.entities }
func (l *LibraryImpl) Answer() AnswerPrompt       { return l.answer }

// NewLibrary creates a library with the current prompt versions.
func NewLibrary() Library {
	return &LibraryImpl{
		route:     NewRouteVersions(),
		decompose: NewDecomposeVersions(),
		entities:  NewEntitiesVersions(),
		answer:    NewAnswerVersions(),
	}
}
