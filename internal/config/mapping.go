package config

// KeywordFolder maps company-identifying phrases to a Drive folder label.
type KeywordFolder struct {
	Keywords []string
	Folder   string
}

// Folder labels and their identifying phrases, matched against invoice text.
var keywordFolders = []KeywordFolder{
	{Keywords: []string{"ming investment consulting"}, Folder: "MIC"},
	{Keywords: []string{"ktv bar"}, Folder: "KTV"},
	{Keywords: []string{"han factory"}, Folder: "HF"},
	{Keywords: []string{"wolfstreet management"}, Folder: "WSM"},
	{Keywords: []string{"ming dynastie gmbh"}, Folder: "M2"},
	{Keywords: []string{"ming dynastie jannowitzbrücke"}, Folder: "M1"},
	{Keywords: []string{"han bbq"}, Folder: "H1"},
	{Keywords: []string{"bb ming I GmbH"}, Folder: "AR"},
	{Keywords: []string{"coffee hanjan"}, Folder: "HJ"},
}

// KeywordFolders returns the static keyword-to-folder table. The table is
// compiled in and loaded once; callers get a copy so it stays immutable.
func KeywordFolders() []KeywordFolder {
	out := make([]KeywordFolder, len(keywordFolders))
	copy(out, keywordFolders)
	return out
}

// FolderFor returns the folder label table maps keyword to, or "" if the
// keyword is not in the table.
func FolderFor(table []KeywordFolder, keyword string) string {
	for _, kf := range table {
		for _, kw := range kf.Keywords {
			if kw == keyword {
				return kf.Folder
			}
		}
	}
	return ""
}
