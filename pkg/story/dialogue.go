package story

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// DialogueLine is one line of scene dialogue. A line without a speaker is narration.
type DialogueLine struct {
	Speaker    string `json:"speaker,omitempty" yaml:"speaker,omitempty"`       // Character ID
	Text       string `json:"text" yaml:"text"`                                 // The spoken or narrated text
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"` // Portrait key for the speaker
}

// UnmarshalJSON accepts either a plain string (narration) or a line object.
func (l *DialogueLine) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*l = DialogueLine{Text: str}
		return nil
	}

	type Alias DialogueLine
	aux := &struct{ *Alias }{Alias: (*Alias)(l)}
	return json.Unmarshal(data, aux)
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML content files.
func (l *DialogueLine) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = DialogueLine{Text: value.Value}
		return nil
	}

	type Alias DialogueLine
	var aux Alias
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*l = DialogueLine(aux)
	return nil
}
