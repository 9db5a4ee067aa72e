package classifier

import (
	"context"

	"github.com/regrada-ai/finetune/internal/model"
)

// Mock is a parameter-free classifier: it votes for class input_ids[0] mod C.
type Mock struct {
	numClasses int
}

func NewMock(numClasses int) *Mock {
	return &Mock{numClasses: numClasses}
}

func (m *Mock) Forward(ctx context.Context, inputIDs, attentionMask [][]int, labels []int) (model.Output, error) {
	if err := ctx.Err(); err != nil {
		return model.Output{}, err
	}
	logits := make([][]float64, len(inputIDs))
	for i, ids := range inputIDs {
		row := make([]float64, m.numClasses)
		class := 0
		if len(ids) > 0 {
			class = ((ids[0] % m.numClasses) + m.numClasses) % m.numClasses
		}
		row[class] = 1
		logits[i] = row
	}

	out := model.Output{Logits: logits}
	if labels != nil {
		loss, err := meanCrossEntropy(logits, labels)
		if err != nil {
			return model.Output{}, err
		}
		out.Loss = &loss
	}
	return out, nil
}

func (m *Mock) Parameters() []*model.Parameter {
	return nil
}

func (m *Mock) NumClasses() int {
	return m.numClasses
}
