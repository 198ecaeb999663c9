package checkout

import (
	"slices"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// State — состояние мастера оформления для клиента.
type State struct {
	Step      domain.CheckoutStep `json:"step"`
	StepIndex int                 `json:"stepIndex"`
	StepCount int                 `json:"stepCount"`
	Form      domain.CheckoutForm `json:"form"`
	CanGoBack bool                `json:"canGoBack"`
	IsLast    bool                `json:"isLast"`
}

// Wizard ведёт покупателя по шагам information → shipping → payment.
type Wizard struct {
	mu         sync.Mutex
	step       int
	form       domain.CheckoutForm
	submitting bool
}

// NewWizard создаёт мастер на первом шаге с формой по умолчанию.
func NewWizard() *Wizard {
	return &Wizard{form: domain.NewCheckoutForm()}
}

// State возвращает текущее состояние.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

// Update заменяет значения формы; шаг не меняется.
func (w *Wizard) Update(form domain.CheckoutForm) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form = form
	return w.stateLocked()
}

// Next проверяет поля текущего шага и переходит к следующему.
// На последнем шаге только проверяет.
func (w *Wizard) Next() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := ValidateStep(domain.CheckoutSteps[w.step], w.form); err != nil {
		return w.stateLocked(), err
	}
	if w.step < len(domain.CheckoutSteps)-1 {
		w.step++
	}
	return w.stateLocked(), nil
}

// Back возвращает на предыдущий шаг без проверки.
func (w *Wizard) Back() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > 0 {
		w.step--
	}
	return w.stateLocked()
}

// GoTo переходит на уже пройденный шаг. Перепрыгнуть вперёд нельзя.
func (w *Wizard) GoTo(step domain.CheckoutStep) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := slices.Index(domain.CheckoutSteps, step)
	if idx < 0 || idx > w.step {
		return w.stateLocked(), domain.ErrStepInvalid
	}
	w.step = idx
	return w.stateLocked(), nil
}

// Reset возвращает мастер в исходное состояние.
func (w *Wizard) Reset() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.step = 0
	w.form = domain.NewCheckoutForm()
	return w.stateLocked()
}

func (w *Wizard) beginSubmit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.submitting {
		return false
	}
	w.submitting = true
	return true
}

func (w *Wizard) endSubmit() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false
}

func (w *Wizard) stateLocked() State {
	return State{
		Step:      domain.CheckoutSteps[w.step],
		StepIndex: w.step,
		StepCount: len(domain.CheckoutSteps),
		Form:      w.form,
		CanGoBack: w.step > 0,
		IsLast:    w.step == len(domain.CheckoutSteps)-1,
	}
}
