// Package seed provides demo data for local development.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fbastos/demandboard/internal/deadline"
	"github.com/fbastos/demandboard/internal/forms"
	"github.com/fbastos/demandboard/internal/store"
	"github.com/fbastos/demandboard/internal/types"
)

// Demo creates an enrollment template with a couple of demands. If
// templates already exist, seeding is skipped (idempotent).
func Demo(ctx context.Context, s *store.Store) error {
	existing, err := s.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("checking templates: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("templates already seeded (%d found), skipping", len(existing))
		return nil
	}

	tpl := &types.Template{
		Name:                "Matrícula",
		AverageDurationDays: 7,
		Tabs: []types.Tab{
			{ID: "dados-gerais", Name: "Dados gerais", Order: 0},
			{ID: "documentos", Name: "Documentos", Order: 1},
		},
		Fields: []types.FieldDefinition{
			{
				FieldID:          "aluno",
				Name:             "Nome do aluno",
				Type:             types.FieldText,
				RequiredOnCreate: true,
				ComplementsName:  true,
				TabIDs:           []string{"dados-gerais"},
				TabOrder:         map[string]int{"dados-gerais": 0},
			},
			{
				FieldID:  "data_nascimento",
				Name:     "Data de nascimento",
				Type:     types.FieldDate,
				TabIDs:   []string{"dados-gerais"},
				TabOrder: map[string]int{"dados-gerais": 1},
			},
			{
				FieldID:  "possui_bolsa",
				Name:     "Possui bolsa?",
				Type:     types.FieldDropdown,
				Options:  []string{"sim", "não"},
				TabIDs:   []string{"dados-gerais"},
				TabOrder: map[string]int{"dados-gerais": 2},
			},
			{
				FieldID:  "percentual_bolsa",
				Name:     "Percentual da bolsa",
				Type:     types.FieldDecimal,
				TabIDs:   []string{"dados-gerais"},
				TabOrder: map[string]int{"dados-gerais": 3},
				Visibility: &types.VisibilityCondition{
					SourceFieldID:   "possui_bolsa",
					Operator:        types.OpEquals,
					ComparisonValue: "sim",
				},
			},
			{
				FieldID:             "responsaveis",
				Name:                "Responsáveis",
				Type:                types.FieldGroup,
				TabIDs:              []string{"dados-gerais"},
				TabOrder:            map[string]int{"dados-gerais": 4},
				DefaultReplicaCount: 1,
				Children: []types.FieldDefinition{
					{FieldID: "resp_nome", Name: "Nome", Type: types.FieldText, TabIDs: []string{"dados-gerais"}},
					{FieldID: "resp_telefone", Name: "Telefone", Type: types.FieldText, TabIDs: []string{"dados-gerais"}},
				},
			},
			{
				FieldID: "comprovante_residencia",
				Name:    "Comprovante de residência",
				Type:    types.FieldFile,
				TabIDs:  []string{"documentos"},
			},
		},
		Tasks: []types.TaskDefinition{
			{TaskID: "conferir-documentos", Name: "Conferir documentos", Order: 0},
			{TaskID: "aprovar-financeiro", Name: "Aprovação financeira", Order: 1},
			{TaskID: "confirmar-turma", Name: "Confirmar turma", Order: 2},
		},
	}
	if err := s.CreateTemplate(ctx, tpl); err != nil {
		return fmt.Errorf("seeding template: %w", err)
	}

	now := time.Now()
	for _, d := range []struct {
		aluno   string
		ageDays int
	}{
		{"Ana Souza", 2},
		{"Bruno Lima", 9},
	} {
		values := forms.Values{
			"aluno":            d.aluno,
			"possui_bolsa":     "não",
			"resp_nome__0":     "",
			"resp_telefone__0": "",
		}
		created := now.AddDate(0, 0, -d.ageDays)
		demand := &types.Demand{
			TemplateID:           tpl.ID,
			Name:                 forms.ComplementName(tpl, values),
			Status:               types.StatusCreated,
			ExpectedDurationDays: tpl.AverageDurationDays,
			FieldValues:          values,
			TaskStatuses: []types.TaskStatus{
				{TaskID: "conferir-documentos"},
				{TaskID: "aprovar-financeiro"},
				{TaskID: "confirmar-turma"},
			},
			CreatedAt:  created,
			ForecastAt: created.AddDate(0, 0, tpl.AverageDurationDays),
		}
		demand.OnTime = deadline.OnTime(now, created, nil, tpl.AverageDurationDays)
		if err := s.CreateDemand(ctx, demand); err != nil {
			return fmt.Errorf("seeding demand %q: %w", demand.Name, err)
		}
	}

	log.Printf("seeded template %q with 2 demands", tpl.Name)
	return nil
}
