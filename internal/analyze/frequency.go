package analyze

import "strings"

// commonWords is a frequency-ordered list of common English words; a
// token's rank is its 1-based position, tokens outside the list rank after it
var commonWords = strings.Fields(`
the of and to a in is that for it as was with be by on not he i this are or
his from at which but have an they you were her she there one all we their
been has would when who will more if no out so said what up its about into
than them can only other new some could time these two may then do first any
my now such like our over man me even most made after also did many before
must through back years where much your way well down should because each just
those people how too little state good very make world still own see men work
long get here between both life being under never day same another know while
last might us great old year off come since against go came right used take
three states himself few house use during without again place american around
however home small found thought went say part once general high upon school
every does got united left number course war until always away something fact
though water less public put think almost hand enough far took head yet
government system better set told nothing night end why called didn't eyes
find going look asked later knew point next program city business give group
toward young let room president side social given present several order
national second possible rather per face among form important often things
looking early white case john become large big need four within felt along
children saw best church ever least power development light thing seemed family
interest want members mind country area others done turned although open god
service problem certain kind different thus began door help sense means whole
matter perhaps itself york it's times law human line above name example action
company hands local show whether five history gave today either act feet across
taken past quite anything seen having death experience body word half really
week free car field already information tell together college shall money period
held keep sure probably real seems behind cannot miss political air question
making office brought whose special heard major problems ago became federal
moment study available known result street economic boy position reason change
south board individual job areas society west close turn love community true
court force full seem am wife age policy everything voice water
`)

var wordRank = func() map[string]int {
	m := make(map[string]int, len(commonWords))
	for i, w := range commonWords {
		if _, ok := m[w]; !ok {
			m[w] = i + 1
		}
	}
	return m
}()

// rankOf returns a token's frequency rank
func rankOf(token string) int {
	if r, ok := wordRank[token]; ok {
		return r
	}
	return len(commonWords) * 4
}
