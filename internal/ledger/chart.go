package ledger

import "sort"

// Accounts used by posting rules and engines.
const (
	AccountCapital             = "101000"
	AccountRetainedEarnings    = "110000"
	AccountResult              = "120000"
	AccountSuppliers           = "401000"
	AccountCustomers           = "411000"
	AccountCreators            = "467000"
	AccountVATDeductibleAssets = "445620"
	AccountVATDeductible       = "445660"
	AccountVATCollected20      = "445710"
	AccountVATCollected10      = "445711"
	AccountVATCollected55      = "445712"
	AccountVATCollected21      = "445713"
	AccountBank                = "512000"
	AccountGatewayFees         = "627000"
	AccountDisposalLoss        = "675000"
	AccountDepreciationExpense = "681000"
	AccountServiceRevenue      = "706000"
	AccountDisposalGain        = "775000"
)

// Chart is the static PCG registry. Contra-asset accounts (28x) are assets
// with a credit normal side.
var Chart = []Account{
	// Classe 1 - capitaux
	{Code: "101000", Label: "Capital social", Type: TypeEquity, NormalSide: SideCredit},
	{Code: "106000", Label: "Réserves", Type: TypeEquity, NormalSide: SideCredit},
	{Code: "108000", Label: "Compte de l'exploitant", Type: TypeEquity, NormalSide: SideCredit},
	{Code: "110000", Label: "Report à nouveau", Type: TypeEquity, NormalSide: SideCredit},
	{Code: "120000", Label: "Résultat de l'exercice", Type: TypeEquity, NormalSide: SideCredit},
	{Code: "164000", Label: "Emprunts auprès des établissements de crédit", Type: TypeLiability, NormalSide: SideCredit},

	// Classe 2 - immobilisations
	{Code: "205000", Label: "Logiciels", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "213000", Label: "Constructions", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "213500", Label: "Agencements des constructions", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "218200", Label: "Matériel de transport", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "218300", Label: "Matériel informatique", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "218400", Label: "Mobilier", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "280500", Label: "Amortissements des logiciels", Type: TypeAsset, NormalSide: SideCredit},
	{Code: "281300", Label: "Amortissements des constructions", Type: TypeAsset, NormalSide: SideCredit},
	{Code: "281350", Label: "Amortissements des agencements", Type: TypeAsset, NormalSide: SideCredit},
	{Code: "281820", Label: "Amortissements du matériel de transport", Type: TypeAsset, NormalSide: SideCredit},
	{Code: "281830", Label: "Amortissements du matériel informatique", Type: TypeAsset, NormalSide: SideCredit},
	{Code: "281840", Label: "Amortissements du mobilier", Type: TypeAsset, NormalSide: SideCredit},

	// Classe 3 - stocks
	{Code: "370000", Label: "Stocks de marchandises", Type: TypeAsset, NormalSide: SideDebit},

	// Classe 4 - tiers
	{Code: "401000", Label: "Fournisseurs", Type: TypeLiability, NormalSide: SideCredit, Lettrable: true},
	{Code: "411000", Label: "Clients", Type: TypeAsset, NormalSide: SideDebit, Lettrable: true},
	{Code: "421000", Label: "Personnel - rémunérations dues", Type: TypeLiability, NormalSide: SideCredit},
	{Code: "431000", Label: "Sécurité sociale", Type: TypeLiability, NormalSide: SideCredit},
	{Code: "437000", Label: "Autres organismes sociaux", Type: TypeLiability, NormalSide: SideCredit},
	{Code: "445200", Label: "TVA due intracommunautaire", Type: TypeLiability, NormalSide: SideCredit},
	{Code: "445620", Label: "TVA déductible sur immobilisations", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "445660", Label: "TVA déductible sur autres biens et services", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "445710", Label: "TVA collectée 20%", Type: TypeLiability, NormalSide: SideCredit, VATRate: "20"},
	{Code: "445711", Label: "TVA collectée 10%", Type: TypeLiability, NormalSide: SideCredit, VATRate: "10"},
	{Code: "445712", Label: "TVA collectée 5,5%", Type: TypeLiability, NormalSide: SideCredit, VATRate: "5.5"},
	{Code: "445713", Label: "TVA collectée 2,1%", Type: TypeLiability, NormalSide: SideCredit, VATRate: "2.1"},
	{Code: "467000", Label: "Créateurs - comptes de reversement", Type: TypeLiability, NormalSide: SideCredit, Lettrable: true},

	// Classe 5 - financiers
	{Code: "512000", Label: "Banque", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "530000", Label: "Caisse", Type: TypeAsset, NormalSide: SideDebit},
	{Code: "580000", Label: "Virements internes", Type: TypeAsset, NormalSide: SideDebit},

	// Classe 6 - charges
	{Code: "606000", Label: "Achats non stockés", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "613000", Label: "Locations", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "622600", Label: "Honoraires", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "623000", Label: "Publicité", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "626000", Label: "Frais postaux et télécommunications", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "627000", Label: "Services bancaires et frais de paiement", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "628500", Label: "Frais de plateforme", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "641000", Label: "Rémunérations du personnel", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "645000", Label: "Charges de sécurité sociale", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "661000", Label: "Charges d'intérêts", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "671000", Label: "Charges exceptionnelles sur opérations de gestion", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "675000", Label: "Valeurs comptables des éléments d'actif cédés", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "681000", Label: "Dotations aux amortissements", Type: TypeExpense, NormalSide: SideDebit},
	{Code: "681700", Label: "Dotations aux provisions pour dépréciation", Type: TypeExpense, NormalSide: SideDebit},

	// Classe 7 - produits
	{Code: "706000", Label: "Prestations de services", Type: TypeRevenue, NormalSide: SideCredit},
	{Code: "708000", Label: "Produits des activités annexes", Type: TypeRevenue, NormalSide: SideCredit},
	{Code: "758000", Label: "Produits divers de gestion courante", Type: TypeRevenue, NormalSide: SideCredit},
	{Code: "771000", Label: "Produits exceptionnels sur opérations de gestion", Type: TypeRevenue, NormalSide: SideCredit},
	{Code: "775000", Label: "Produits des cessions d'éléments d'actif", Type: TypeRevenue, NormalSide: SideCredit},
	{Code: "781000", Label: "Reprises sur amortissements et provisions", Type: TypeRevenue, NormalSide: SideCredit},
}

var chartIndex = func() map[string]*Account {
	idx := make(map[string]*Account, len(Chart))
	for i := range Chart {
		idx[Chart[i].Code] = &Chart[i]
	}
	return idx
}()

// LookupAccount finds an account in the chart by code.
func LookupAccount(code string) (*Account, bool) {
	a, ok := chartIndex[code]
	return a, ok
}

// AccountLabel returns the chart label for code, or code itself when unknown.
func AccountLabel(code string) string {
	if a, ok := chartIndex[code]; ok {
		return a.Label
	}
	return code
}

// LettrableCodes returns the codes flagged for reconciliation, sorted.
func LettrableCodes() []string {
	var codes []string
	for _, a := range Chart {
		if a.Lettrable {
			codes = append(codes, a.Code)
		}
	}
	sort.Strings(codes)
	return codes
}

// VATCollectedAccounts returns collected-VAT sub-accounts keyed by code.
func VATCollectedAccounts() map[string]string {
	out := make(map[string]string)
	for _, a := range Chart {
		if a.VATRate != "" {
			out[a.Code] = a.VATRate
		}
	}
	return out
}
