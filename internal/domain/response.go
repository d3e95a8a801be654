package domain

// Response is the outcome of one dispatch: the mentor reply, the metadata
// delta to merge, and the newly recognized problem. A nil Problem leaves the
// current problem unchanged.
type Response struct {
	Reply   ChatMessage
	Delta   MetadataDelta
	Problem *CurrentProblem
}
