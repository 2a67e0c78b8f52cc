package util

import "github.com/OFFIS-RIT/idisk/backend/pkg/common"

// LoadVocabulary reads IDISK_VOCAB_FILE and falls back to the built-in
// vocabulary when it is unset. IDISK_STRICT overrides the file's strict
// flag.
func LoadVocabulary() (*common.Vocabulary, error) {
	vocab := common.DefaultVocabulary()
	if path := GetEnv("IDISK_VOCAB_FILE"); path != "" {
		v, err := common.LoadVocabularyFile(path)
		if err != nil {
			return nil, err
		}
		vocab = v
	}
	vocab.Strict = GetEnvBool("IDISK_STRICT", vocab.Strict)
	return vocab, nil
}
