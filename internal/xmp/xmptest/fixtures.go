// Package xmptest provides folder metadata documents for tests.
package xmptest

// Folder is a document as Live writes it: packet wrapper, three-space
// indentation, three items. bd1.wav and bd2.wav are tagged, sn1.wav has no
// keywords field.
const Folder = `<?xpacket begin="" id="W5M0MpCehiHzreSzNTczkc9d"?>
<x:xmpmeta xmlns:x="adobe:ns:meta/" x:xmptk="XMP Core 5.6.0">
   <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
      <rdf:Description rdf:about=""
            xmlns:dc="http://purl.org/dc/elements/1.1/"
            xmlns:ablFR="https://ns.ableton.com/xmp/fs-resources/1.0/"
            xmlns:xmp="http://ns.adobe.com/xap/1.0/">
         <dc:format>application/vnd.ableton.folder</dc:format>
         <ablFR:resource>folder</ablFR:resource>
         <ablFR:items>
            <rdf:Bag>
               <rdf:li rdf:parseType="Resource">
                  <ablFR:filePath>bd1.wav</ablFR:filePath>
                  <ablFR:keywords>
                     <rdf:Bag>
                        <rdf:li>Drums|Kick</rdf:li>
                        <rdf:li>Creator|17cupsofcoffee</rdf:li>
                     </rdf:Bag>
                  </ablFR:keywords>
               </rdf:li>
               <rdf:li rdf:parseType="Resource">
                  <ablFR:filePath>bd2.wav</ablFR:filePath>
                  <ablFR:keywords>
                     <rdf:Bag>
                        <rdf:li>Creator|17cupsofcoffee</rdf:li>
                     </rdf:Bag>
                  </ablFR:keywords>
               </rdf:li>
               <rdf:li rdf:parseType="Resource">
                  <ablFR:filePath>sn1.wav</ablFR:filePath>
               </rdf:li>
            </rdf:Bag>
         </ablFR:items>
         <xmp:CreatorTool>Updated by Ableton Live 12.0</xmp:CreatorTool>
      </rdf:Description>
   </rdf:RDF>
</x:xmpmeta>
<?xpacket end="w"?>
`

// Single holds one item, kick.wav, tagged Drums|Kick.
const Single = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
    <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
        <rdf:Description rdf:about="" xmlns:ablFR="https://ns.ableton.com/xmp/fs-resources/1.0/">
            <ablFR:items>
                <rdf:Bag>
                    <rdf:li rdf:parseType="Resource">
                        <ablFR:filePath>kick.wav</ablFR:filePath>
                        <ablFR:keywords>
                            <rdf:Bag>
                                <rdf:li>Drums|Kick</rdf:li>
                            </rdf:Bag>
                        </ablFR:keywords>
                    </rdf:li>
                </rdf:Bag>
            </ablFR:items>
        </rdf:Description>
    </rdf:RDF>
</x:xmpmeta>
`

// Compact uses the shorthand RDF forms: simple properties as attributes of
// rdf:Description, struct items as nested descriptions, and a non-default
// prefix for the Ableton namespace.
const Compact = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
  <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
    <rdf:Description rdf:about="" xmlns:abl="https://ns.ableton.com/xmp/fs-resources/1.0/" abl:resource="folder">
      <abl:items>
        <rdf:Bag>
          <rdf:li>
            <rdf:Description abl:filePath="hat.wav">
              <abl:keywords>
                <rdf:Bag>
                  <rdf:li>Perc</rdf:li>
                </rdf:Bag>
              </abl:keywords>
            </rdf:Description>
          </rdf:li>
        </rdf:Bag>
      </abl:items>
    </rdf:Description>
  </rdf:RDF>
</x:xmpmeta>
`

// EmptyKeywords holds one item, pad.wav, whose keywords field is an empty bag.
const EmptyKeywords = `<x:xmpmeta xmlns:x="adobe:ns:meta/">
    <rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">
        <rdf:Description rdf:about="" xmlns:ablFR="https://ns.ableton.com/xmp/fs-resources/1.0/">
            <ablFR:items>
                <rdf:Bag>
                    <rdf:li rdf:parseType="Resource">
                        <ablFR:filePath>pad.wav</ablFR:filePath>
                        <ablFR:keywords><rdf:Bag/></ablFR:keywords>
                    </rdf:li>
                </rdf:Bag>
            </ablFR:items>
        </rdf:Description>
    </rdf:RDF>
</x:xmpmeta>
`
