// Package application contém os casos de uso do controle de admissão:
// resolução de policy por tier (Registry), perfis de tiers pré-definidos,
// a decisão allow/deny (Service) e o limite de requisições em voo.
//
// Ele depende apenas do pacote domain e não conhece net/http.
package application
