package index

// Posting records how often one document contains a term.
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

type PostingList []Posting

// DocIDs returns the document identifiers of the list, in list order.
func (pl PostingList) DocIDs() []string {
	ids := make([]string, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

type TermEntry struct {
	Term     string
	Postings PostingList
}
