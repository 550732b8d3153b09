package forms

import (
	"reflect"
	"testing"

	"github.com/fbastos/demandboard/internal/types"
)

func TestDecodeGroups(t *testing.T) {
	fields := []types.FieldDefinition{
		{FieldID: "titulo", Type: types.FieldText},
		*testGroup(),
	}
	values := Values{
		"titulo":      "Matrícula",
		"nome__0":     "Ana",
		"telefone__0": "111",
		"nome__2":     "Clara",
		"nome__abc":   "stray",
	}

	plain, groups := DecodeGroups(fields, values)

	wantPlain := Values{"titulo": "Matrícula", "nome__abc": "stray"}
	if !reflect.DeepEqual(plain, wantPlain) {
		t.Errorf("plain = %v, want %v", plain, wantPlain)
	}

	replicas := groups["responsaveis"]
	if len(replicas) != 3 {
		t.Fatalf("replicas = %d, want 3 (gap filled)", len(replicas))
	}
	if replicas[0]["nome"] != "Ana" || replicas[0]["telefone"] != "111" {
		t.Errorf("replica 0 = %v", replicas[0])
	}
	if replicas[1]["nome"] != "" || replicas[1]["telefone"] != "" {
		t.Errorf("gap replica should be empty, got %v", replicas[1])
	}
	if replicas[2]["nome"] != "Clara" {
		t.Errorf("replica 2 = %v", replicas[2])
	}
}

func TestDecodeGroups_NoReplicaKeys(t *testing.T) {
	fields := []types.FieldDefinition{*testGroup()}
	_, groups := DecodeGroups(fields, Values{"outro": "x"})
	if _, ok := groups["responsaveis"]; ok {
		t.Error("group without stored replicas should be absent from the structured view")
	}
}

func TestEncodeGroups_RoundTrip(t *testing.T) {
	plain := Values{"titulo": "T"}
	groups := GroupValues{
		"responsaveis": {
			{"nome": "Ana", "telefone": "111"},
			{"nome": "Bia", "telefone": ""},
		},
	}
	encoded := EncodeGroups(plain, groups)
	want := Values{
		"titulo":      "T",
		"nome__0":     "Ana",
		"telefone__0": "111",
		"nome__1":     "Bia",
		"telefone__1": "",
	}
	if !reflect.DeepEqual(encoded, want) {
		t.Errorf("encoded = %v, want %v", encoded, want)
	}

	fields := []types.FieldDefinition{
		{FieldID: "titulo", Type: types.FieldText},
		*testGroup(),
	}
	gotPlain, gotGroups := DecodeGroups(fields, encoded)
	if !reflect.DeepEqual(gotPlain, plain) {
		t.Errorf("plain round trip: got %v", gotPlain)
	}
	if !reflect.DeepEqual(gotGroups, groups) {
		t.Errorf("groups round trip: got %v", gotGroups)
	}
}

func TestComplementName(t *testing.T) {
	tpl := &types.Template{
		Name: "Matrícula",
		Fields: []types.FieldDefinition{
			{FieldID: "aluno", Type: types.FieldText, ComplementsName: true},
			{FieldID: "turno", Type: types.FieldDropdown},
			{
				FieldID: "responsaveis",
				Type:    types.FieldGroup,
				Children: []types.FieldDefinition{
					{FieldID: "nome", Type: types.FieldText, ComplementsName: true},
				},
			},
		},
	}

	got := ComplementName(tpl, Values{"aluno": "Ana", "turno": "manhã", "nome__0": "", "nome__1": "Paula"})
	if got != "Matrícula - Ana Paula" {
		t.Errorf("name = %q", got)
	}

	if got := ComplementName(tpl, Values{}); got != "Matrícula" {
		t.Errorf("no complements: name = %q", got)
	}
}
