package dialogue

import (
	"fmt"
	"strings"
	"time"

	"agendly/models"
)

// User-facing copy lives here so the engine logic stays readable and the
// wording is easy to review in one place.

const (
	msgAskCancelDetails  = "Certo! Me diga qual agendamento você quer cancelar (nome e data) que eu cuido disso."
	msgAskReschedDetails = "Sem problema! Me diga qual agendamento você quer remarcar e para quando."
	msgHandedOff         = "Anotado! Nossa equipe vai cuidar da sua solicitação e te retorna em breve."
	msgAskNewDatetime    = "Esse horário não está disponível. Qual outro dia ou horário ficaria bom para você?"
	msgAskOtherDatetime  = "Sem problema! Qual outro dia ou horário ficaria bom para você?"
	msgAskYesNo          = "Só preciso de um sim ou não: posso confirmar o horário proposto?"
	msgBookingFailed     = "Desculpe, tive um problema ao confirmar seu agendamento. Pode tentar de novo em instantes?"
	msgFlowReset         = "Desculpe, me perdi no nosso agendamento. Vamos recomeçar: o que você gostaria de marcar?"
	msgFlowAbandoned     = "Tudo bem, deixei esse agendamento de lado. É só me chamar quando quiser marcar de novo."
	msgSlotJustTakenNone = "Esse horário acabou de ser ocupado e não encontrei outros próximos. Qual outro dia ou horário ficaria bom?"
)

func (e *DefaultDialogueEngine) localZone() *time.Location {
	return time.FixedZone("local", e.TZOffsetMinutes*60)
}

func (e *DefaultDialogueEngine) formatSlot(t time.Time) string {
	return t.In(e.localZone()).Format("02/01/2006 às 15:04")
}

func (e *DefaultDialogueEngine) promptMissing(draft models.BookingDraft) string {
	var missing []string
	if draft.PersonName == "" {
		missing = append(missing, "com quem você quer marcar")
	}
	if draft.Date == "" {
		missing = append(missing, "o dia")
	}
	if draft.Time == "" {
		missing = append(missing, "o horário")
	}
	return fmt.Sprintf("Quase lá! Ainda preciso saber %s.", strings.Join(missing, ", "))
}

func (e *DefaultDialogueEngine) promptProposal(draft models.BookingDraft, slot models.CandidateSlot) string {
	with := draft.PersonName
	if draft.ServiceName != "" {
		with = fmt.Sprintf("%s (%s)", draft.PersonName, draft.ServiceName)
	}
	return fmt.Sprintf("Encontrei um horário com %s em %s. Posso confirmar?", with, e.formatSlot(slot.Start))
}

func (e *DefaultDialogueEngine) promptNextProposal(slot models.CandidateSlot) string {
	return fmt.Sprintf("Esse horário acabou de ser ocupado. O próximo disponível é %s. Posso confirmar?", e.formatSlot(slot.Start))
}

func (e *DefaultDialogueEngine) promptBooked(draft models.BookingDraft, slot models.CandidateSlot) string {
	return fmt.Sprintf("Pronto! Seu horário com %s está confirmado para %s.", draft.PersonName, e.formatSlot(slot.Start))
}

func (e *DefaultDialogueEngine) slotOptions(slots []models.CandidateSlot) []string {
	options := make([]string, len(slots))
	for i, s := range slots {
		options[i] = fmt.Sprintf("%d. %s", i+1, e.formatSlot(s.Start))
	}
	return options
}

func (e *DefaultDialogueEngine) promptPickSlot(n int) string {
	return fmt.Sprintf("Esse horário acabou de ser ocupado, mas tenho %d alternativas. Responda com o número da opção que preferir:", n)
}

func (e *DefaultDialogueEngine) promptPickAgain(n int) string {
	return fmt.Sprintf("Não entendi. Responda com um número de 1 a %d para escolher um horário:", n)
}
