// Package domain define contratos e tipos de domínio do controle de admissão.
//
// Este pacote não depende de net/http nem de implementações concretas.
// Policy, Decision e Clock são valores puros; StatsStore e SlotPool são
// contratos implementados pela camada infra.
package domain
